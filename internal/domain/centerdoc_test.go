package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func centerDocument() string {
	oneLine := func(s string) string { return strings.ReplaceAll(s, "\n", " ") }
	return strings.Join([]string{
		"Сводка за 01.02.2025",
		"Ростовский ЗЦ ЕС ОрВД\t\t\t",
		"1\t" + oneLine(testSHR) + "\t" + oneLine(testDEP) + "\t" + oneLine(testARR),
		"2\tDEP/5957N02905E OPR/Second",
		"Московский ЗЦ ЕС ОрВД",
		"1\tSID/99 OPR/Third\t\r",
		"",
	}, "\n")
}

func TestIsCenterDocument(t *testing.T) {
	assert.True(t, IsCenterDocument(centerDocument()))
	assert.False(t, IsCenterDocument(testSHR), "no tabs")
	assert.False(t, IsCenterDocument("a\tb\tc"), "no center heading")
}

func TestParseCenterDocument(t *testing.T) {
	res, err := ParseCenterDocument([]byte(centerDocument()))
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "Ростовский ЗЦ ЕС ОрВД", res.Records[0].CenterName)
	assert.Equal(t, "7772251137", res.Records[0].SID)
	assert.Equal(t, 535, *res.Records[0].DurationMinutes)

	assert.Equal(t, "Московский ЗЦ ЕС ОрВД", res.Records[1].CenterName)
	assert.Equal(t, "Third", res.Records[1].Operator)

	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, ScopeRow, res.Warnings[0].Scope)
	assert.Contains(t, res.Warnings[0].Message, "line 4")
}

func TestParseCenterDocument_InvalidUTF8(t *testing.T) {
	_, err := ParseCenterDocument([]byte{'\t', 0xff})
	assert.ErrorIs(t, err, ErrUndecodableText)
}

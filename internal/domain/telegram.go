package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// coordToken is the loose shape of a coordinate; DecodeCoordinate decides
// whether it is actually valid.
const coordToken = `(\d{4,6}\s?[NS]\s?\d{5,7}\s?[EW])\b`

var (
	sidRe  = regexp.MustCompile(`(?i)\bSID[/\s]\s*(\d+)`)
	dofRe  = regexp.MustCompile(`(?i)\bDOF/\s*(\d{6})`)
	addRe  = regexp.MustCompile(`(?i)\bADD\s+(\d{6})`)
	adaRe  = regexp.MustCompile(`(?i)\bADA\s+(\d{6})`)
	atdRe  = regexp.MustCompile(`(?i)\bATD\s+(\d{4})`)
	ataRe  = regexp.MustCompile(`(?i)\bATA\s+(\d{4})`)
	typRe  = regexp.MustCompile(`(?i)\bTYP/\s*([^\s/()]+)`)
	regRe  = regexp.MustCompile(`(?i)\bREG[/\s]\s*([^\s/()]+)`)
	oprRe  = regexp.MustCompile(`(?i)\bOPR/\s*(.*)`)
	telRe  = regexp.MustCompile(`(?i)\bTEL/\s*([+\d][\d\s()\-]{5,})`)
	zonaRe = regexp.MustCompile(`(?i)\bZONA\s+([^/]+)`)

	// altitudeRe wants the band to start a token: after a space, "/" or "-".
	altitudeRe = regexp.MustCompile(`(?i)(?:^|[\s/-])M(\d{4})/M(\d{4})`)

	depCoordRe   = regexp.MustCompile(`(?i)\bDEP/\s*` + coordToken)
	destCoordRe  = regexp.MustCompile(`(?i)\bDEST/\s*` + coordToken)
	adepzCoordRe = regexp.MustCompile(`(?i)\bADEPZ\s*` + coordToken)
	adarrzRe     = regexp.MustCompile(`(?i)\bADARRZ\s*` + coordToken)

	// labelBoundaryRe marks where free text (OPR, ZONA) stops.
	labelBoundaryRe = regexp.MustCompile(`(?i)\s-?(?:SID|DEP|DEST|DOF|OPR|TYP|REG|RMK|STS|EET|PER|TEL|ZONA|ADEPZ|ADARRZ|ADD|ADA|ATD|ATA)[/\s]|\s-?M\d{4}/|\)\s*$`)

	phoneRe = regexp.MustCompile(`(?:\+7|\b[78])[\s\-(]*\d{3}[\s\-)]*\d{3}[\s\-]*\d{2}[\s\-]*\d{2}\b`)
)

// ShrFields are the fields of a flight plan message.
type ShrFields struct {
	SID           string
	Departure     *Coordinate
	Destination   *Coordinate
	DateToken     string // DOF, YYMMDD
	Operator      string
	OperatorPhone string
	UAVType       string
	Registration  string
	Altitude      *AltitudeBand
	Zone          string
}

// DepFields are the fields of an actual departure report.
type DepFields struct {
	SID          string
	DateToken    string // ADD, else DOF
	TimeToken    string // ATD, HHMM
	Departure    *Coordinate
	Destination  *Coordinate // DEST/ repeated from the plan
	Registration string
}

// ArrFields are the fields of an actual arrival report.
type ArrFields struct {
	SID          string
	DateToken    string // ADA, else DOF
	TimeToken    string // ATA, HHMM
	Arrival      *Coordinate
	Departure    *Coordinate // DEP/ repeated from the plan
	Registration string
}

// ExtractSHR pulls flight plan fields from SHR text. Missing tokens leave
// fields empty; a coordinate that has the right shape but does not decode
// yields a warning.
func ExtractSHR(text string) (ShrFields, []ParseWarning) {
	text = normalizeWhitespace(text)
	var f ShrFields
	var warnings []ParseWarning

	f.SID = firstGroup(sidRe, text)
	f.DateToken = firstGroup(dofRe, text)
	f.UAVType = firstGroup(typRe, text)
	f.Registration = firstGroup(regRe, text)
	f.Zone = freeText(firstGroup(zonaRe, text))
	f.Operator, f.OperatorPhone = extractOperator(text)

	if m := altitudeRe.FindStringSubmatch(text); m != nil {
		f.Altitude = &AltitudeBand{Min: atoiOrZero(m[1]), Max: atoiOrZero(m[2])}
	}

	f.Departure, warnings = decodeLabeled(text, warnings, depCoordRe, adepzCoordRe)
	f.Destination, warnings = decodeLabeled(text, warnings, destCoordRe, adarrzRe)
	return f, warnings
}

// ExtractDEP pulls actual departure fields from DEP text.
func ExtractDEP(text string) (DepFields, []ParseWarning) {
	text = normalizeWhitespace(text)
	var f DepFields
	var warnings []ParseWarning

	f.SID = firstGroup(sidRe, text)
	f.DateToken = firstGroup(addRe, text)
	if f.DateToken == "" {
		f.DateToken = firstGroup(dofRe, text)
	}
	f.TimeToken = firstGroup(atdRe, text)
	f.Registration = firstGroup(regRe, text)

	f.Departure, warnings = decodeLabeled(text, warnings, adepzCoordRe, depCoordRe)
	f.Destination, warnings = decodeLabeled(text, warnings, destCoordRe)
	return f, warnings
}

// ExtractARR pulls actual arrival fields from ARR text.
func ExtractARR(text string) (ArrFields, []ParseWarning) {
	text = normalizeWhitespace(text)
	var f ArrFields
	var warnings []ParseWarning

	f.SID = firstGroup(sidRe, text)
	f.DateToken = firstGroup(adaRe, text)
	if f.DateToken == "" {
		f.DateToken = firstGroup(dofRe, text)
	}
	f.TimeToken = firstGroup(ataRe, text)
	f.Registration = firstGroup(regRe, text)

	f.Arrival, warnings = decodeLabeled(text, warnings, adarrzRe, destCoordRe)
	f.Departure, warnings = decodeLabeled(text, warnings, depCoordRe)
	return f, warnings
}

// normalizeWhitespace collapses line breaks and runs of blanks into single
// spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// decodeLabeled tries each labeled coordinate pattern in order and returns
// the first token that decodes. Tokens that match a label but not a grammar
// are reported and the next pattern is tried.
func decodeLabeled(text string, warnings []ParseWarning, patterns ...*regexp.Regexp) (*Coordinate, []ParseWarning) {
	for _, re := range patterns {
		tok := firstGroup(re, text)
		if tok == "" {
			continue
		}
		c, ok := DecodeCoordinate(tok)
		if !ok {
			warnings = append(warnings, warnf(ScopeCoordinate, "undecodable coordinate %q", tok))
			continue
		}
		return &c, warnings
	}
	return nil, warnings
}

// freeText cuts s at the first label that follows it and trims separators.
func freeText(s string) string {
	if loc := labelBoundaryRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.Trim(s, " ,;-")
}

// extractOperator returns the OPR text with any phone number removed, and
// the phone taken from it, from a TEL/ token, or from a bare number anywhere
// in the message.
func extractOperator(text string) (operator, phone string) {
	raw := freeText(firstGroup(oprRe, text))
	if loc := phoneRe.FindStringIndex(raw); loc != nil {
		phone = normalizePhone(raw[loc[0]:loc[1]])
		raw = raw[:loc[0]] + " " + raw[loc[1]:]
	}
	operator = strings.Trim(normalizeWhitespace(raw), " ,;-")

	if phone == "" {
		if tel := firstGroup(telRe, text); tel != "" {
			phone = normalizePhone(tel)
		}
	}
	if phone == "" {
		// SID digits must not be read as a number.
		if bare := phoneRe.FindString(sidRe.ReplaceAllString(text, " ")); bare != "" {
			phone = normalizePhone(bare)
		}
	}
	return operator, phone
}

// normalizePhone keeps digits and a leading plus. Eleven-digit numbers with
// the domestic 8 prefix are rewritten to +7.
func normalizePhone(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	p := b.String()
	if len(p) == 11 && p[0] == '8' {
		p = "+7" + p[1:]
	} else if len(p) == 11 && p[0] == '7' {
		p = "+" + p
	}
	return p
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

package domain

import (
	"strings"
	"unicode/utf8"
)

// knownCenters are the regional air traffic centers whose names open a
// section of a center document.
var knownCenters = []string{
	"Санкт-Петербургский",
	"Ростовский",
	"Новосибирский",
	"Екатеринбургский",
	"Московский",
	"Красноярский",
	"Тюменский",
	"Самарский",
	"Хабаровский",
	"Иркутский",
	"Магаданский",
	"Якутский",
	"Калининградский",
	"Симферопольский",
}

func centerLine(line string) bool {
	for _, c := range knownCenters {
		if strings.Contains(line, c) {
			return true
		}
	}
	return false
}

// IsCenterDocument reports whether text looks like a tab-separated center
// export: it has at least one center heading and at least one tabbed line.
func IsCenterDocument(text string) bool {
	if !strings.Contains(text, "\t") {
		return false
	}
	for _, line := range strings.Split(text, "\n") {
		if centerLine(line) {
			return true
		}
	}
	return false
}

// ParseCenterDocument reads a tab-separated center export. A line naming a
// known center starts a section; each following tabbed line is
// "<n> \t SHR \t DEP \t ARR" for one flight of that center.
func ParseCenterDocument(data []byte) (BatchResult, error) {
	if !utf8.Valid(data) {
		return BatchResult{}, ErrUndecodableText
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	var res BatchResult
	var center string
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if centerLine(line) {
			center = strings.TrimSpace(strings.SplitN(line, "\t", 2)[0])
			continue
		}
		if center == "" || !strings.Contains(line, "\t") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			res.Skip(warnf(ScopeRow, "line %d: want at least 3 columns, got %d", i+1, len(parts)))
			continue
		}
		set := FragmentSet{CenterName: center, SHR: parts[1], DEP: parts[2]}
		if len(parts) > 3 {
			set.ARR = parts[3]
		}
		if strings.TrimSpace(set.SHR+set.DEP+set.ARR) == "" {
			res.Skip(warnf(ScopeRow, "line %d: no telegram columns", i+1))
			continue
		}

		rec, warnings := Assemble(set)
		for j := range warnings {
			warnings[j] = warnf(warnings[j].Scope, "line %d: %s", i+1, warnings[j].Message)
		}
		res.Add(rec, warnings)
	}
	return res, nil
}

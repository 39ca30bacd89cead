package domain

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrUndecodableText is returned when a telegram batch is not valid UTF-8.
var ErrUndecodableText = errors.New("undecodable telegram text")

var (
	// fragmentMarkerRe finds where a message starts: "(SHR-", "(DEP-",
	// "(ARR-" or the "-TITLE IDEP" / "-TITLE IARR" header.
	fragmentMarkerRe = regexp.MustCompile(`(?i)\((SHR|DEP|ARR)-|-TITLE\s+I(DEP|ARR)\b`)

	blankLineRe = regexp.MustCompile(`\n[ \t\r]*\n`)

	depHintRe = regexp.MustCompile(`(?i)\b(?:ADEPZ|ATD|ADD)\b`)
	arrHintRe = regexp.MustCompile(`(?i)\b(?:ADARRZ|ATA|ADA)\b`)
)

// SplitFragments cuts a flat telegram batch into messages. Messages are
// found by their opening marker; text without any marker is split on blank
// lines and each block is classified by the tokens it carries.
func SplitFragments(text string) []RawFragment {
	locs := fragmentMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		var out []RawFragment
		for _, block := range blankLineRe.Split(text, -1) {
			if block = strings.TrimSpace(block); block != "" {
				out = append(out, RawFragment{Kind: classifyBlock(block), Text: block})
			}
		}
		return out
	}

	var out []RawFragment
	if lead := strings.TrimSpace(text[:locs[0][0]]); lead != "" {
		out = append(out, RawFragment{Kind: classifyBlock(lead), Text: lead})
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		var label string
		if loc[2] >= 0 {
			label = text[loc[2]:loc[3]]
		} else {
			label = text[loc[4]:loc[5]]
		}
		out = append(out, RawFragment{
			Kind: kindFromLabel(label),
			Text: strings.TrimSpace(text[loc[0]:end]),
		})
	}
	return out
}

func kindFromLabel(label string) FragmentKind {
	switch strings.ToUpper(label) {
	case "DEP":
		return KindDEP
	case "ARR":
		return KindARR
	default:
		return KindSHR
	}
}

func classifyBlock(block string) FragmentKind {
	switch {
	case depHintRe.MatchString(block):
		return KindDEP
	case arrHintRe.MatchString(block):
		return KindARR
	default:
		return KindSHR
	}
}

// GroupFragments collects fragments into per-flight sets keyed by SID, in
// order of first appearance. A second fragment of the same kind for a SID
// starts a new flight. Fragments without a SID stand alone.
func GroupFragments(fragments []RawFragment) []FragmentSet {
	var sets []FragmentSet
	open := make(map[string]int)

	for _, frag := range fragments {
		sid := firstGroup(sidRe, normalizeWhitespace(frag.Text))
		idx, ok := open[sid]
		if sid == "" || !ok || slotFilled(sets[idx], frag.Kind) {
			sets = append(sets, FragmentSet{})
			idx = len(sets) - 1
			if sid != "" {
				open[sid] = idx
			}
		}
		fillSlot(&sets[idx], frag)
	}
	return sets
}

func slotFilled(set FragmentSet, kind FragmentKind) bool {
	switch kind {
	case KindDEP:
		return set.DEP != ""
	case KindARR:
		return set.ARR != ""
	default:
		return set.SHR != ""
	}
}

func fillSlot(set *FragmentSet, frag RawFragment) {
	switch frag.Kind {
	case KindDEP:
		set.DEP = frag.Text
	case KindARR:
		set.ARR = frag.Text
	default:
		set.SHR = frag.Text
	}
}

// ParseTelegramBatch parses a flat batch of telegram text into records. Only
// text that is not valid UTF-8 is an error; everything else degrades into
// warnings on the result.
func ParseTelegramBatch(data []byte) (BatchResult, error) {
	if !utf8.Valid(data) {
		return BatchResult{}, ErrUndecodableText
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	var res BatchResult
	for i, set := range GroupFragments(SplitFragments(text)) {
		rec, warnings := Assemble(set)
		if !rec.HasData() {
			res.Skip(warnf(ScopeFragment, "message %d: no recognizable fields", i+1))
			continue
		}
		res.Add(rec, warnings)
	}
	return res, nil
}

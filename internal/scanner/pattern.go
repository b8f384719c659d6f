package scanner

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	// DefaultBodyPattern matches NNN-NN-NNNN. Reserved ranges are rejected by
	// ValidSSN since RE2 has no lookahead.
	DefaultBodyPattern = `\d{3}-\d{2}-\d{4}`

	// DefaultAttachmentPattern is the looser attachment pattern: 3-4 digits,
	// optional separator, 2 digits, optional separator, 3-4 digits and an
	// optional 2 digit suffix, with optional parentheses.
	DefaultAttachmentPattern = `(\()?\d{3,4}([- )])?(\s)?\d{2}([- \s])?\d{3,4}(-)?(\d{2})?`
)

// Matcher finds pattern hits in extracted text.
type Matcher struct {
	re       *regexp.Regexp
	validate func(string) bool
}

// NewMatcher compiles pattern. validate may be nil; when set, candidates it
// rejects are not reported.
func NewMatcher(pattern string, validate func(string) bool) (*Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &Matcher{re: re, validate: validate}, nil
}

// NewBodyMatcher returns the strict matcher used for message bodies.
// An empty pattern selects DefaultBodyPattern together with ValidSSN.
func NewBodyMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		return NewMatcher(DefaultBodyPattern, ValidSSN)
	}
	return NewMatcher(pattern, nil)
}

// NewAttachmentMatcher returns the loose matcher used for attachment text.
// An empty pattern selects DefaultAttachmentPattern.
func NewAttachmentMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		pattern = DefaultAttachmentPattern
	}
	return NewMatcher(pattern, nil)
}

// Pattern returns the source of the compiled expression.
func (m *Matcher) Pattern() string {
	return m.re.String()
}

// FindMatches returns every non-overlapping hit in text, left to right.
// A candidate rejected by the validator does not consume its text: the search
// resumes one rune after the candidate's start.
func (m *Matcher) FindMatches(text string) []Match {
	if m.validate == nil {
		idx := m.re.FindAllStringIndex(text, -1)
		if len(idx) == 0 {
			return nil
		}
		matches := make([]Match, 0, len(idx))
		for _, loc := range idx {
			matches = append(matches, Match{Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
		}
		return matches
	}

	var matches []Match
	for pos := 0; pos <= len(text); {
		loc := m.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if s := text[start:end]; end > start && m.validate(s) {
			matches = append(matches, Match{Text: s, Start: start, End: end})
			pos = end
			continue
		}
		if start == len(text) {
			break
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		pos = start + size
	}
	return matches
}

// Count returns the number of hits in text.
func (m *Matcher) Count(text string) int {
	return len(m.FindMatches(text))
}

// Contains reports whether text has at least one hit.
func (m *Matcher) Contains(text string) bool {
	if m.validate == nil {
		return m.re.MatchString(text)
	}
	return len(m.FindMatches(text)) > 0
}

// ValidSSN reports whether s, formatted NNN-NN-NNNN, avoids the reserved
// ranges: area 000, 666 and 900-999, group 00 and serial 0000.
func ValidSSN(s string) bool {
	if len(s) != 11 || s[3] != '-' || s[6] != '-' {
		return false
	}
	area, group, serial := s[0:3], s[4:6], s[7:11]
	switch {
	case area == "000", area == "666", area[0] == '9':
		return false
	case group == "00":
		return false
	case serial == "0000":
		return false
	}
	return true
}

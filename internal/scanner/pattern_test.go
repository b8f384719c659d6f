package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSSN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"123-45-6789", true},
		{"078-05-1120", true},
		{"000-12-3456", false},
		{"666-12-3456", false},
		{"900-12-3456", false},
		{"999-99-9999", false},
		{"123-00-4567", false},
		{"123-45-0000", false},
		{"123456789", false},
		{"123-456-789", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidSSN(tt.in))
		})
	}
}

func TestBodyMatcher_Default(t *testing.T) {
	m, err := NewBodyMatcher("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBodyPattern, m.Pattern())

	text := "ids: 123-45-6789, 666-12-3456 and 234-56-7890; phone 555-1234"
	matches := m.FindMatches(text)
	require.Len(t, matches, 2)
	assert.Equal(t, "123-45-6789", matches[0].Text)
	assert.Equal(t, "234-56-7890", matches[1].Text)
	assert.Equal(t, text[matches[0].Start:matches[0].End], matches[0].Text)

	assert.True(t, m.Contains("ssn 123-45-6789"))
	assert.False(t, m.Contains("ssn 000-45-6789"))
	assert.False(t, m.Contains("nothing here"))
}

func TestBodyMatcher_RejectedCandidateDoesNotHideOverlap(t *testing.T) {
	m, err := NewBodyMatcher("")
	require.NoError(t, err)

	text := "000-12-3456-78-9012"
	matches := m.FindMatches(text)
	require.Len(t, matches, 1)
	assert.Equal(t, Match{Text: "456-78-9012", Start: 8, End: 19}, matches[0])

	assert.Equal(t, 2, m.Count("ref 666-12-3456-78-9012 and 123-45-6789"))
	assert.Zero(t, m.Count("000-00-0000-00-0000"))
}

func TestBodyMatcher_CustomPatternSkipsValidation(t *testing.T) {
	m, err := NewBodyMatcher(`\d{3}-\d{2}-\d{4}`)
	require.NoError(t, err)

	assert.Equal(t, 1, m.Count("000-00-0000"))
}

func TestAttachmentMatcher_Default(t *testing.T) {
	m, err := NewAttachmentMatcher("")
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"dashed", "123-45-6789", 1},
		{"plain digits", "123456789", 1},
		{"spaced", "123 45 6789", 1},
		{"parenthesised", "(123) 45 6789", 1},
		{"two values on separate rows", "123-45-6789\n987-65-4321", 2},
		{"short number", "12-34", 0},
		{"no digits", "name ssn", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Count(tt.text))
		})
	}
}

func TestNewMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher(`(\d{3}`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestFindMatches_NoHits(t *testing.T) {
	m, err := NewAttachmentMatcher("")
	require.NoError(t, err)
	assert.Nil(t, m.FindMatches("plain text"))
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"jane.doe@example.com", true},
		{"j+tag@sub.example.co", true},
		{"JANE@EXAMPLE.COM", true},
		{"jane@example", false},
		{"jane@example.c", false},
		{"@example.com", false},
		{"jane example@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.in))
		})
	}
}

func TestReadTargets(t *testing.T) {
	input := strings.Join([]string{
		"email,name",
		"jane@example.com,Jane",
		"not-an-address,Bogus",
		"",
		" bob@example.com ,Bob",
		"JANE@example.com,Jane again",
		",empty",
	}, "\n")

	targets, err := ReadTargets(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com", "bob@example.com"}, targets.Addresses)
	assert.Equal(t, []string{"not-an-address"}, targets.Invalid)
}

func TestReadTargets_HeaderOnlyAndEmpty(t *testing.T) {
	targets, err := ReadTargets(strings.NewReader("email\n"))
	require.NoError(t, err)
	assert.Empty(t, targets.Addresses)

	targets, err = ReadTargets(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, targets.Addresses)
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.csv")
	require.NoError(t, os.WriteFile(path, []byte("email\njane@example.com\n"), 0600))

	targets, err := LoadTargets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com"}, targets.Addresses)

	_, err = LoadTargets(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether s looks like a mailbox address.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// Targets is the parsed list of mailboxes to scan.
type Targets struct {
	// Addresses are the valid addresses in file order, duplicates removed.
	Addresses []string

	// Invalid are the first-column values that are not addresses.
	Invalid []string
}

// LoadTargets reads the targets CSV at path.
func LoadTargets(path string) (*Targets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets: %w", err)
	}
	defer f.Close()
	return ReadTargets(f)
}

// ReadTargets parses a targets CSV. The first row is a header; the first
// column of every other row is a mailbox address.
func ReadTargets(r io.Reader) (*Targets, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return &Targets{}, nil
		}
		return nil, fmt.Errorf("failed to read targets header: %w", err)
	}

	t := &Targets{}
	seen := make(map[string]bool)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read targets: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		addr := strings.TrimSpace(record[0])
		if addr == "" {
			continue
		}
		if !ValidEmail(addr) {
			t.Invalid = append(t.Invalid, addr)
			continue
		}
		key := strings.ToLower(addr)
		if seen[key] {
			continue
		}
		seen[key] = true
		t.Addresses = append(t.Addresses, addr)
	}
	return t, nil
}

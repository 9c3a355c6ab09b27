// Package eligibility classifies employees for the reference period,
// applying the exclusion-set veto before any date-based rule.
package eligibility

import (
	"sort"
	"strings"
)

// StateMapper derives an employee's operative state from the union name.
// Union names embed a state code ("SINDEPD SP", "SITEPD PR"); the mapper
// resolves the code to the state name used by the reference tables.
type StateMapper struct {
	codes   []string
	mapping map[string]string
}

// NewStateMapper creates a mapper from code -> state name pairs.
func NewStateMapper(mapping map[string]string) *StateMapper {
	codes := make([]string, 0, len(mapping))
	for code := range mapping {
		codes = append(codes, code)
	}
	// Longest code first so overlapping codes resolve deterministically.
	sort.Slice(codes, func(i, j int) bool {
		if len(codes[i]) != len(codes[j]) {
			return len(codes[i]) > len(codes[j])
		}
		return codes[i] < codes[j]
	})
	return &StateMapper{codes: codes, mapping: mapping}
}

// StateFromUnion returns the state name for a union, or "" when no
// configured code appears in the union name. Codes only match as whole
// tokens: "PROC DADOS" must not match the code "PR".
func (m *StateMapper) StateFromUnion(union string) string {
	for _, code := range m.codes {
		if code != "" && containsToken(union, code) {
			return m.mapping[code]
		}
	}
	return ""
}

func containsToken(s, code string) bool {
	for start := 0; ; {
		i := strings.Index(s[start:], code)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(code)
		leftOK := i == 0 || !isAlnum(s[i-1])
		rightOK := end == len(s) || !isAlnum(s[end])
		if leftOK && rightOK {
			return true
		}
		start = i + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

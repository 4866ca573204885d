package gapanalysis

import "slices"

// Aliases lists, per stored domain, the live domains it also covers.
type Aliases map[string][]string

// DefaultAliases returns the built-in alias table.
func DefaultAliases() Aliases {
	return Aliases{
		"sensor": {"binary_sensor"},
		"select": {"binary_sensor", "sensor"},
	}
}

// Expand returns the live domains a stored domain covers, itself last.
func (a Aliases) Expand(domain string) []string {
	return append(slices.Clone(a[domain]), domain)
}

// Satisfies reports whether a stored domain covers a live domain.
func (a Aliases) Satisfies(stored, live string) bool {
	return slices.Contains(a.Expand(stored), live)
}

// Package league maps human-readable league names to the competition codes
// used by the feed and the match store.
package league

// Mapper resolves display names to competition codes. The mapping keeps
// declaration order so UI consumers can list leagues deterministically.
type Mapper struct {
	names []string
	codes map[string]string
}

// NewMapper returns a mapper seeded with the built-in leagues.
func NewMapper() *Mapper {
	m := &Mapper{codes: make(map[string]string)}
	m.Add("Premier League", "E0")
	m.Add("La Liga", "SP1")
	m.Add("Bundesliga", "D1")
	return m
}

// Add registers a display-name to code mapping. Re-adding a known name
// updates the code without duplicating the ordering entry.
func (m *Mapper) Add(displayName, code string) {
	if _, ok := m.codes[displayName]; !ok {
		m.names = append(m.names, displayName)
	}
	m.codes[displayName] = code
}

// ResolveCode returns the competition code for a display name, or "" when the
// league is unknown.
func (m *Mapper) ResolveCode(displayName string) string {
	return m.codes[displayName]
}

// Valid reports whether a display name has a mapping.
func (m *Mapper) Valid(displayName string) bool {
	_, ok := m.codes[displayName]
	return ok
}

// ValidCode reports whether a competition code belongs to a known league.
func (m *Mapper) ValidCode(code string) bool {
	for _, c := range m.codes {
		if c == code {
			return true
		}
	}
	return false
}

// AllLeagues returns display names in registration order.
func (m *Mapper) AllLeagues() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// AllCodes returns competition codes in registration order.
func (m *Mapper) AllCodes() []string {
	out := make([]string, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, m.codes[name])
	}
	return out
}

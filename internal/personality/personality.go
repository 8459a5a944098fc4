// Package personality defines the acceleration personality identifiers shared
// between the params store and the longitudinal controller.
package personality

import (
	"fmt"
	"strconv"
	"strings"
)

// Personality selects an acceleration profile. The ordinals are written to
// the params store as decimal strings and must not be renumbered.
type Personality int

const (
	Stock  Personality = 0
	Normal Personality = 1
	Eco    Personality = 2
	Sport  Personality = 3
)

// All contains every valid personality in ordinal order.
var All = []Personality{Stock, Normal, Eco, Sport}

var names = map[Personality]string{
	Stock:  "stock",
	Normal: "normal",
	Eco:    "eco",
	Sport:  "sport",
}

// Valid reports whether p is one of the known personalities.
func (p Personality) Valid() bool {
	_, ok := names[p]
	return ok
}

func (p Personality) String() string {
	if name, ok := names[p]; ok {
		return name
	}
	return fmt.Sprintf("personality(%d)", int(p))
}

// Parse decodes a params value holding a decimal ordinal. It returns false
// for non-numeric input and for ordinals outside the known set, so values
// written by a newer release are never coerced into a wrong personality.
func Parse(raw string) (Personality, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Stock, false
	}
	p := Personality(n)
	if !p.Valid() {
		return Stock, false
	}
	return p, true
}

// ParseName accepts either a name ("sport", case-insensitive) or a decimal
// ordinal.
func ParseName(s string) (Personality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range names {
		if name == s {
			return p, nil
		}
	}
	if p, ok := Parse(s); ok {
		return p, nil
	}
	return Stock, fmt.Errorf("unknown personality %q, valid values: %s", s, ValidNamesString())
}

// ValidNamesString returns a comma-separated list of names for error messages.
func ValidNamesString() string {
	parts := make([]string, 0, len(All))
	for _, p := range All {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, ", ")
}

// Encode returns the params representation of p.
func (p Personality) Encode() string {
	return strconv.Itoa(int(p))
}

func (p Personality) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid personality %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Personality) UnmarshalText(text []byte) error {
	v, err := ParseName(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

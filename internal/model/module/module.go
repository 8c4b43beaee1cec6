// Package module defines the product contexts ("modules") a conversation
// belongs to. Each kind selects an educator persona and a synthesis voice.
package module

import "fmt"

// Kind identifies one of the three product modules.
type Kind string

const (
	// KindTeaching is the legal educator module.
	KindTeaching Kind = "teaching"
	// KindSimulation is the courtroom debate simulation module.
	KindSimulation Kind = "simulation"
	// KindAdvisor is the personal legal advisor module.
	KindAdvisor Kind = "advisor"
)

// Kinds lists every valid module kind in display order.
func Kinds() []Kind {
	return []Kind{KindTeaching, KindSimulation, KindAdvisor}
}

// Valid reports whether k is a known module kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTeaching, KindSimulation, KindAdvisor:
		return true
	}
	return false
}

// Parse converts a wire value into a Kind.
func Parse(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown module kind %q", s)
	}
	return k, nil
}

// StorageKey returns the namespaced key under which sessions of this
// module kind are persisted. Each kind owns an independent collection.
func (k Kind) StorageKey() string {
	return "sessions_" + string(k)
}

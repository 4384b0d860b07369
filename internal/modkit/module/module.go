// Package module defines the minimal contract for a modkit module
package module

// Module defines the minimal contract used by the port helpers
// keep this sibling to avoid import knots when a module also exports its own ports type
type Module interface {
	Ports() any
	Name() string
}

// HasPorts reports whether m exposes a non nil port set
func HasPorts(m Module) bool {
	if m == nil {
		return false
	}
	return m.Ports() != nil
}

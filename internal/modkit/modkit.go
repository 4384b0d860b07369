package modkit

// Module is the common surface for modules that expose ports
// keep this tiny so modules stay decoupled
type Module interface {
	// Ports returns a module specific port set for cross wiring
	Ports() any
	// Name returns the module name
	Name() string
	// Prefix returns the env prefix the module reads its options from
	Prefix() string
}

// Builder constructs a Module from shared deps
// modules typically expose New(deps Deps, overrides Options) (*Module, error)
type Builder func(Deps) (Module, error)

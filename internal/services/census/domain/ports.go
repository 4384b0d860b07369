package domain

import "context"

// Source lists candidate repositories from one discovery mechanism
type Source interface {
	Name() string
	Candidates(ctx context.Context) ([]Candidate, error)
}

// CensusPort runs a full census and returns the report
type CensusPort interface {
	Run(ctx context.Context) (Report, error)
}

// AuthPort verifies forge credentials before any work
type AuthPort interface {
	CheckAuth(ctx context.Context) error
}

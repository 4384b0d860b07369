package module

import "fshfinder/internal/services/census/domain"

// Ports defines census module ports exposed via the registry
type Ports struct {
	Census domain.CensusPort
	Auth   domain.AuthPort
}

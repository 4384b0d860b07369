package repository

import (
	"strings"

	"fshfinder/internal/core/normalize"
)

// DefaultHost is the forge host assumed when none is given
const DefaultHost = "github.com"

// Identity is the case insensitive (host, owner, name) key of a repository
// The zero value is not a valid identity
type Identity struct {
	host  string
	owner string
	name  string
}

// NewIdentity normalises the parts into an identity
func NewIdentity(host, owner, name string) Identity {
	if strings.TrimSpace(host) == "" {
		host = DefaultHost
	}
	return Identity{
		host:  normalize.Key(host),
		owner: normalize.Key(owner),
		name:  normalize.Key(name),
	}
}

func (id Identity) Host() string  { return id.host }
func (id Identity) Owner() string { return id.owner }
func (id Identity) Name() string  { return id.name }

// IsZero reports an identity without owner or name
func (id Identity) IsZero() bool { return id.owner == "" || id.name == "" }

// String renders https://<host>/<owner>/<name>
func (id Identity) String() string {
	return "https://" + id.host + "/" + id.owner + "/" + id.name
}

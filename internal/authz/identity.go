package authz

import (
	"fmt"
	"net/http"

	"github.com/nerzhul/coa/internal/types"
)

// Identity modes accepted by NewIdentityResolver.
const (
	IdentityStaticAdmin = "static-admin"
)

// IdentityResolver extracts the (subject, groups) pair a request acts as.
type IdentityResolver interface {
	Resolve(r *http.Request) (types.Identity, error)
}

// StaticIdentity resolves every request to the same identity. Development
// only: it grants whatever Identity is allowed to every caller.
type StaticIdentity struct {
	Identity types.Identity
}

// AdminIdentity is the cluster superuser identity.
func AdminIdentity() StaticIdentity {
	return StaticIdentity{Identity: types.Identity{
		Subject: "admin",
		Groups:  []string{"system:masters"},
	}}
}

// Resolve returns a copy of the configured identity.
func (s StaticIdentity) Resolve(_ *http.Request) (types.Identity, error) {
	groups := make([]string, len(s.Identity.Groups))
	copy(groups, s.Identity.Groups)
	return types.Identity{Subject: s.Identity.Subject, Groups: groups}, nil
}

// NewIdentityResolver returns the resolver for a configured identity mode.
func NewIdentityResolver(mode string) (IdentityResolver, error) {
	switch mode {
	case IdentityStaticAdmin, "":
		return AdminIdentity(), nil
	default:
		return nil, fmt.Errorf("unknown identity mode %q", mode)
	}
}

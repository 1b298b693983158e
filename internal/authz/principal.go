// Package authz holds the request principal model, the ownership policy that
// guards journal entries and signups, and the resolver that turns an inbound
// bearer credential into a principal.
//
// Every storage call made by the service layer is preceded by an Authorize
// call. The stores themselves enforce nothing beyond uniqueness.
package authz

import "fmt"

// Kind identifies the variant of a Principal.
type Kind int

const (
	// KindAnonymous is an unauthenticated caller, or one whose credential did
	// not verify.
	KindAnonymous Kind = iota
	// KindUser is a caller holding a verified user token.
	KindUser
	// KindService is a trusted backend path acting on behalf of an owner it
	// has re-derived from a verified token claim.
	KindService
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAnonymous:
		return "anonymous"
	case KindUser:
		return "user"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// Principal is the actor on whose behalf an operation is attempted. The zero
// value is Anonymous.
type Principal struct {
	kind Kind
	id   string // user id for KindUser, asserted owner for KindService
}

// Anonymous returns the anonymous principal.
func Anonymous() Principal { return Principal{kind: KindAnonymous} }

// User returns a user principal for the given id. An empty id yields
// Anonymous so that a missing subject can never widen access.
func User(id string) Principal {
	if id == "" {
		return Anonymous()
	}
	return Principal{kind: KindUser, id: id}
}

// ServicePrincipal builds a Service principal whose asserted owner is the
// subject of an already verified token. There is no other way to construct a
// Service principal, so client-supplied input cannot reach it without first
// passing through Resolver.Verify.
func ServicePrincipal(c VerifiedClaims) Principal {
	if c.subject == "" {
		return Anonymous()
	}
	return Principal{kind: KindService, id: c.subject}
}

func (p Principal) Kind() Kind { return p.kind }

func (p Principal) IsAnonymous() bool { return p.kind == KindAnonymous }

func (p Principal) IsUser() bool { return p.kind == KindUser }

func (p Principal) IsService() bool { return p.kind == KindService }

// UserID returns the verified user id of a User principal, or "".
func (p Principal) UserID() string {
	if p.kind != KindUser {
		return ""
	}
	return p.id
}

// AssertedOwner returns the owner id a Service principal acts for, or "".
func (p Principal) AssertedOwner() string {
	if p.kind != KindService {
		return ""
	}
	return p.id
}

// String renders the principal for logs, e.g. "user:9c0b6185-...".
func (p Principal) String() string {
	switch p.kind {
	case KindUser:
		return fmt.Sprintf("user:%s", p.id)
	case KindService:
		return fmt.Sprintf("service:%s", p.id)
	default:
		return p.kind.String()
	}
}

package authz

// Op is an operation a principal attempts against a resource.
type Op int

const (
	OpRead Op = iota
	OpInsert
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Resource is the kind of record an operation targets.
type Resource int

const (
	ResourceEntry Resource = iota
	ResourceSignup
)

func (r Resource) String() string {
	switch r {
	case ResourceEntry:
		return "entry"
	case ResourceSignup:
		return "signup"
	default:
		return "unknown"
	}
}

// Authorize reports whether p may perform op on a resource of kind res.
// owner is the owning user id of the row being read, updated or deleted, or
// the owner declared by an insert; pass "" when the resource has no owner.
//
// Anything not explicitly allowed below is denied.
func Authorize(p Principal, op Op, res Resource, owner string) bool {
	switch res {
	case ResourceEntry:
		return authorizeEntry(p, op, owner)
	case ResourceSignup:
		return authorizeSignup(p, op)
	}
	return false
}

func authorizeEntry(p Principal, op Op, owner string) bool {
	if owner == "" {
		return false
	}
	switch op {
	case OpRead, OpInsert, OpUpdate, OpDelete:
	default:
		return false
	}
	switch p.kind {
	case KindUser:
		return p.id != "" && p.id == owner
	case KindService:
		// The asserted owner is trusted as supplied; verifying it against a
		// token claim is the caller's job (see ServicePrincipal).
		return p.id != "" && p.id == owner
	}
	return false
}

func authorizeSignup(p Principal, op Op) bool {
	switch op {
	case OpInsert:
		return p.kind == KindAnonymous || p.kind == KindUser
	case OpRead:
		return p.kind == KindService
	}
	return false
}

// ReadScope returns the owner id that a listing by p is restricted to. ok is
// false when p has no owner scope at all (Anonymous).
func ReadScope(p Principal) (owner string, ok bool) {
	switch p.kind {
	case KindUser, KindService:
		if p.id == "" {
			return "", false
		}
		return p.id, true
	}
	return "", false
}

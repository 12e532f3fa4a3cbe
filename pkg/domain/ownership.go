package domain

import dErrors "flock/pkg/domain-errors"

// Ownership resolves the owning member of a resource of type T. Each resource
// kind declares one at package level, so owner lookups are checked by the
// compiler rather than resolved from a model name at runtime.
type Ownership[T any] struct {
	Kind  string
	Owner func(T) MemberID
}

// OwnedBy declares the owner accessor for a resource kind.
func OwnedBy[T any](kind string, owner func(T) MemberID) Ownership[T] {
	return Ownership[T]{Kind: kind, Owner: owner}
}

// Authorize allows the caller when they own the resource or hold override.
func (o Ownership[T]) Authorize(caller Caller, resource T, override Capability) error {
	if caller.ID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is required")
	}
	if o.Owner(resource) == caller.ID || caller.Can(override) {
		return nil
	}
	return dErrors.New(dErrors.CodeUnauthorized, "not authorized to modify this "+o.Kind)
}

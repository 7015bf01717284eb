// Package visibility carries the caller's read scope through a search or
// fetch: public papers plus, for an authenticated principal, papers it owns.
package visibility

// Context is an ephemeral, request-scoped read scope. The zero value is the
// anonymous scope (public papers only).
type Context struct {
	principal     int64
	authenticated bool
}

// Anonymous returns the public-only scope.
func Anonymous() Context {
	return Context{}
}

// Principal returns the scope of an authenticated principal.
func Principal(id int64) Context {
	return Context{principal: id, authenticated: true}
}

// Authenticated reports whether the caller carries a principal.
func (c Context) Authenticated() bool {
	return c.authenticated
}

// PrincipalID returns the authenticated principal id. The second return is
// false for the anonymous scope.
func (c Context) PrincipalID() (int64, bool) {
	return c.principal, c.authenticated
}

// CanSee reports whether a paper with the given owner and privacy flag falls
// within this scope.
func (c Context) CanSee(ownerID int64, isPrivate bool) bool {
	if !isPrivate {
		return true
	}
	return c.authenticated && c.principal == ownerID
}

// Package identity carries the authenticated caller through request contexts.
//
// The auth middleware verifies the bearer token, builds an Identity from its
// claims, loads the user and stores it with Set. Handlers read it back with
// Get or User; anonymous requests on optional-auth routes have no Identity.
//
//	id, err := identity.FromClaims(claims, rawToken)
//	ctx = identity.Set(ctx, id.WithUser(user).WithRequest(r))
package identity

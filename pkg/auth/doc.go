// Package auth issues and verifies Terraso tokens and signs users in.
//
// # Tokens
//
// JWTService signs HMAC tokens with the configured secret. Each kind of token
// is marked by a boolean claim and verified by its own method:
//
//   - access: short lived, sent as a Bearer token on API requests
//   - refresh: exchanged for a new access/refresh pair
//   - unsubscribe: embedded in email footers, never expires
//   - approveStoryMapMembership: accepts a story map invitation
//
// # Token exchange
//
// Mobile clients sign in with a provider (Google, Apple, Microsoft) and send
// the provider's id token to the token exchange endpoint. Exchanger verifies
// it against the provider's JWKS, configured as jwt_exchange_providers:
//
//	jwt_exchange_providers:
//	  google:
//	    url: https://www.googleapis.com/oauth2/v3/certs
//	    client_id: my-client-id
//
// AccountService then gets or creates the user for the token's email.
package auth

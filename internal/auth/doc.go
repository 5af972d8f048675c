// Package auth provides credential handling and admin authorization for press-gateway.
//
// # Agent Credentials
//
// Agents authenticate with an opaque credential issued once at registration:
//
//	cred, err := GenerateCredential() // "pp_" + 42 URL-safe symbols
//
// The gateway never stores the credential itself. Records are keyed by its
// fingerprint, a hex BLAKE2b-256 digest:
//
//	key := "agent:" + Fingerprint(cred)
//
// Credentials arrive as "Authorization: Bearer <credential>" and are parsed
// with ExtractBearerToken.
//
// # Admin Tokens
//
// Administrative endpoints accept HS256 JWTs signed with
// auth.admin_jwt_secret. JWTVerifier issues and verifies them, and
// RequireAdmin wraps handlers so only requests carrying a valid token
// reach them. The verified identity is available through FromContext.
package auth

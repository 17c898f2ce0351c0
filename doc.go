// Package users provides the account and session core for a user service:
// credential verification, signed access/refresh token issuance, token
// revocation, and an HTTP surface for registration, login, and profile CRUD.
//
// Token lifecycle:
//   - TokenService mints HS256 signed access and refresh tokens. Every token
//     carries a unique jti, the owning user id, and a type tag so a refresh
//     token can never be replayed against an access-only operation.
//   - RevocationRegistry records revoked jtis until the token would have
//     expired on its own. Logout revokes exactly the presented token; other
//     tokens for the same account keep working.
//
// Identity:
//   - UserProvider is the only component that handles plaintext passwords.
//     Unknown identifier and wrong password fail identically so responses
//     cannot be used to probe which accounts exist.
//   - Deletion is logical. Deactivated accounts keep their row, stop
//     authenticating, and read as absent on public lookup paths.
//
// HTTP:
//   - RegisterUserRoutes mounts the JSON API. Protected routes run the
//     sessionware guard, which validates the bearer token, consults the
//     revocation registry, and rejects identities that no longer resolve to
//     an active account.
package users

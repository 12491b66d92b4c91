// Package auth is the authentication and role-authorization layer for the
// association's volunteer platform: password hashing, JWT session issuance,
// store-verified session resolution, role gates, and the password reset flow.
//
// Sessions:
//   - TokenService signs and verifies HS256 session tokens carrying the
//     user id and role. SessionResolver re-checks every token's subject
//     against the store, so a suspension, ban, or password change cuts off
//     outstanding sessions on the next request.
//
// User lifecycle:
//   - Accounts register as pending and hold one of the roles benevole,
//     donateur, partenaire, or admin. An admin approves, suspends, or bans
//     accounts; UserStateMachine centralizes the allowed transitions and
//     banned is terminal.
//
// Password reset:
//   - InitializePasswordResetHandler issues a single-use reset ticket: a
//     random secret whose sha256 digest is stored on the user row with an
//     expiry. FinalizePasswordResetHandler consumes it with a conditional
//     update keyed on the digest, so concurrent completions cannot both
//     succeed.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the
//     command handlers, and the state machine to describe lifecycle, login,
//     impersonation, and password reset events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package auth

// Package accounts provides the account and access-control core: credential
// hashing, one-time codes for email verification and password reset, JWT
// access/refresh tokens, and the account state machine driving roles, creator
// applications and lifecycle status.
//
// Account lifecycle:
//   - Accounts are created active, unverified and with the user role. The
//     Service issues a verification code on registration and only lets
//     verified, active accounts log in.
//   - AccountStateMachine owns every role, status and creator application
//     change. Each transition is persisted with an UpdateGuard so a concurrent
//     change to the same column is reported as a conflict instead of being
//     silently overwritten.
//
// Tokens:
//   - Access and refresh tokens are HS256 JWTs signed with separate secrets
//     and carry a type claim; a token of one class never verifies as the other.
//   - Every verification failure (malformed, expired, bad signature, wrong
//     type) collapses to ErrInvalidToken.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter used by the Service and the
//     state machine. Sink errors are logged and never fail the operation.
//
// Collaborators:
//   - Notifier delivers rendered emails and AvatarStore uploads profile
//     pictures. Concrete adapters live in the notify and avatar packages.
package accounts

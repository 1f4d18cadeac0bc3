// Package accounts provides account management primitives: a bun backed
// account store, an account status state machine, bcrypt password hashing,
// JWT session tokens, and a router middleware gatekeeper that rejects blocked or
// deleted accounts before any route runs.
//
// Account lifecycle:
//   - Accounts start Unverified, become Active once the owner follows the
//     verification link, and can be Blocked or unblocked by an administrator.
//     There is no terminal state; deletion removes the record.
//   - AccountStateMachine is permissive by default. WithStrictTransitions
//     enables validation against the lifecycle graph.
//
// Gatekeeper:
//   - Gatekeeper runs before route handlers. Requests without a recognizable
//     session token pass through untouched; requests whose token resolves to a
//     missing or blocked account are rejected with 401. Tokens issued before
//     the account record was registered are rejected as well.
//
// Activity sinks:
//   - ActivitySink receives registration, verification, login and status
//     change events. Sinks run best-effort, errors are logged.
package accounts

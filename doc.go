// Package tokens provides signed, expiring token primitives for account
// lifecycle flows plus session token issuance for authenticated
// identities.
//
// Signed tokens:
//   - TokenService signs arbitrary payloads with an HMAC keyed by a
//     secret derived from the secret key base via PBKDF2. Derived keys
//     are cached process wide per secret, salt, and key option tuple.
//     Lifetime is a property of verification: Verify takes a max age and
//     rejects anything signed earlier, so the same token can be accepted
//     by one caller and rejected by another.
//
// Stored tokens:
//   - Confirmation and password reset tokens are random strings persisted
//     on the users table next to their sent_at timestamps. The command
//     handlers (RegisterUser, RequestConfirmation, ConfirmAccount,
//     InitializePasswordReset, FinalizePasswordReset) run inside
//     transactions so a failed step leaves the stored token and the rest
//     of the record untouched.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Authenticator
//     and the command handlers to describe registration, confirmation,
//     login, impersonation, and password reset events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package tokens

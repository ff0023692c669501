// Package auth implements the account lifecycle and authorization gate of a
// social posting service.
//
// Accounts:
//   - Accounts are created unconfirmed. A Confirm code delivered by email
//     activates them. Contributors additionally need an administrator to
//     approve them before they can sign in.
//   - Codes live in one slot on the account (code, issue time, purpose) and
//     are valid for OTPExpiration. Issuing a new code replaces the old one.
//     Consuming a code is a conditional update keyed on the stored code, so
//     two racing requests cannot both succeed.
//
// Sessions:
//   - Login runs the checks in a fixed order and returns a signed HS256
//     token carrying name, userName, email and role claims. Nothing about
//     the session is stored server side.
//
// Posts:
//   - PostGate stamps created_by/created_at from the verified caller and
//     only lets administrators or the post author add comments.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package auth

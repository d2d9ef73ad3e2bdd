// Package auth owns who is logged in.
//
// # Session
//
// Session holds at most one current identity (an email or phone string). It
// is created once at startup and handed to every component that needs it:
//
//	session := auth.NewSession()
//	session.Subscribe(func(prev, next string) { ... })
//
// Listeners run after each change, including to and from "nobody".
//
// # Store
//
// Store keeps the credential registry under the "users" key as a JSON object
// mapping identity to a bcrypt hash, and persists the current session pointer
// under "currentUser":
//
//   - Register(ctx, id, secret): ErrDuplicateIdentity if id is taken
//   - Login(ctx, id, secret): ErrNotFound, ErrInvalidCredentials
//   - Logout(ctx): clears the pointer, keeps per-user data
//   - Restore(ctx): reinstates a pointer that still verifies, drops one that doesn't
//
// # Session Pointers
//
// The pointer is an HS256 JWT with the identity in "sub". Anything that fails
// verification (bad signature, expired, a legacy plain JSON pointer) is
// treated as no session and removed. Writes of the pointer are best effort:
// a storage failure is logged and the in-memory session still changes.
package auth

// Package secretpages implements a small multi-strategy authentication
// demo: users register or sign in with local credentials, Google, or
// Facebook, and can read and submit a single secret tied to their
// account.
//
// The root package holds the domain types and the authentication
// building blocks: the user store contract, credential verification,
// session management and the request auth middleware. Store backends
// live under stores/, the provider flows under oauth2/ and the HTTP
// surface under web/.
package secretpages

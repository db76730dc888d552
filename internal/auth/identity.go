package auth

import "encoding/gob"

// Identity is the signed-in visitor as returned by the identity provider.
// It is built once in the OAuth callback and stored in the session as is;
// nothing downstream re-parses or validates it.
type Identity struct {
	Provider string // e.g. "github"
	Login    string // provider username, informational only
	Name     string // display name, may be empty
	Email    string // primary email, may be empty
	Token    string // provider access token
}

func init() {
	// session cookies are gob encoded by securecookie
	gob.Register(Identity{})
}

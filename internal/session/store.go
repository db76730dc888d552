package session

import (
	"errors"
	"net/http"

	"strap/internal/auth"
)

// ErrNoIdentity is returned by Load when the request carries no signed-in
// visitor. It is the normal "unauthenticated" state, not a failure.
var ErrNoIdentity = errors.New("session: no identity")

// Store is the typed session accessor. The identity is written once by the
// OAuth callback and only ever read back as an auth.Identity.
type Store interface {
	Load(r *http.Request) (*auth.Identity, error)
	Save(w http.ResponseWriter, r *http.Request, identity auth.Identity) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

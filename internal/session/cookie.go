package session

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	CookieName = "strap_session"

	identityKey  = "identity"
	sessionIDKey = "sid"
)

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

// normalize applies safe defaults without breaking callers
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if !o.HttpOnly {
		o.HttpOnly = true
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// newCodec builds the signed and encrypted cookie codec shared by both
// stores. MaxAge 0 makes it a browser-session cookie.
func newCodec(secret []byte, opts CookieOptions) *sessions.CookieStore {
	opts = opts.normalize()

	blockKey := sha256.Sum256(append([]byte("strap-session-encryption:"), secret...))
	cs := sessions.NewCookieStore(secret, blockKey[:])
	cs.Options = &sessions.Options{
		Path:     opts.Path,
		Domain:   opts.Domain,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
	cs.MaxAge(0)

	return cs
}

// expire marks s for deletion on the next Save.
func expire(cs *sessions.CookieStore, s *sessions.Session) {
	opts := *cs.Options
	opts.MaxAge = -1
	s.Options = &opts
	s.Values = make(map[any]any)
}

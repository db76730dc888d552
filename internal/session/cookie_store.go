package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"strap/internal/auth"
)

// CookieStore keeps the whole identity in the session cookie itself.
// Nothing is stored server side.
type CookieStore struct {
	codec *sessions.CookieStore
}

func NewCookieStore(secret []byte, opts CookieOptions) *CookieStore {
	return &CookieStore{codec: newCodec(secret, opts)}
}

func (c *CookieStore) Load(r *http.Request) (*auth.Identity, error) {
	s, err := c.codec.Get(r, CookieName)
	if err != nil {
		return nil, fmt.Errorf("session: decode cookie: %w", err)
	}

	id, ok := s.Values[identityKey].(auth.Identity)
	if !ok {
		return nil, ErrNoIdentity
	}
	return &id, nil
}

func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, identity auth.Identity) error {
	// a cookie that fails to decode yields a fresh session, which is what
	// we want when replacing it
	s, _ := c.codec.Get(r, CookieName)
	s.Values[identityKey] = identity

	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("session: save cookie: %w", err)
	}
	return nil
}

func (c *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	s, _ := c.codec.Get(r, CookieName)
	expire(c.codec, s)

	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("session: clear cookie: %w", err)
	}
	return nil
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"strap/internal/auth"
	"strap/internal/auth/provider"
	"strap/internal/session"
	"strap/internal/web"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	challenge string
	verifier  string
	identity  *auth.Identity
	err       error
}

func (*fakeProvider) Name() string { return "github" }

func (f *fakeProvider) AuthCodeURL(state, codeChallenge string) string {
	f.challenge = codeChallenge
	return "https://github.test/login/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) ExchangeCode(_ context.Context, _ string, codeVerifier string) (*auth.Identity, error) {
	f.verifier = codeVerifier
	return f.identity, f.err
}

type fixture struct {
	router   *gin.Engine
	provider *fakeProvider
	store    session.Store
}

func newFixture(t *testing.T, p *fakeProvider) *fixture {
	t.Helper()

	store := session.NewCookieStore(testSecret, session.CookieOptions{})
	r := gin.New()
	r.SetHTMLTemplate(web.Templates)
	NewHandler(provider.NewRegistry(p), store, false).RegisterRoutes(r)

	return &fixture{router: r, provider: p, store: store}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// startLogin runs /auth/github and returns the state and the flow cookies.
func (f *fixture) startLogin(t *testing.T) (string, []*http.Cookie) {
	t.Helper()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/auth/github", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get("state"), rec.Result().Cookies()
}

func callbackRequest(query url.Values, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query.Encode(), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginRedirectsToProvider(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeProvider{})
	state, cookies := f.startLogin(t)

	assert.NotEmpty(t, state)
	names := map[string]*http.Cookie{}
	for _, c := range cookies {
		names[c.Name] = c
	}
	require.Contains(t, names, stateCookieName)
	require.Contains(t, names, pkceCookieName)
	assert.Equal(t, state, names[stateCookieName].Value)
	assert.True(t, names[pkceCookieName].HttpOnly)
	assert.Equal(t, flowCookiePath, names[pkceCookieName].Path)
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(names[pkceCookieName].Value), f.provider.challenge)
}

func TestCallbackStoresIdentity(t *testing.T) {
	t.Parallel()

	want := auth.Identity{Provider: "github", Login: "ada", Name: "Ada", Email: "a@example.com", Token: "tok123"}
	f := newFixture(t, &fakeProvider{identity: &want})
	state, cookies := f.startLogin(t)

	rec := f.do(callbackRequest(url.Values{"code": {"c"}, "state": {state}}, cookies))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	for _, c := range cookies {
		if c.Name == pkceCookieName {
			assert.Equal(t, c.Value, f.provider.verifier)
		}
	}

	sc := findCookie(rec, session.CookieName)
	require.NotNil(t, sc)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sc)
	got, err := f.store.Load(req)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	// flow cookies are spent
	assert.Negative(t, findCookie(rec, stateCookieName).MaxAge)
	assert.Negative(t, findCookie(rec, pkceCookieName).MaxAge)
}

func TestCallbackFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider *fakeProvider
		query    func(state string) url.Values
		cookies  func([]*http.Cookie) []*http.Cookie
		status   int
		body     string
	}{
		{
			name:     "state mismatch",
			provider: &fakeProvider{identity: &auth.Identity{Token: "t"}},
			query: func(string) url.Values {
				return url.Values{"code": {"c"}, "state": {"forged"}}
			},
			status: http.StatusBadRequest,
			body:   "did not come from this site",
		},
		{
			name:     "access denied",
			provider: &fakeProvider{identity: &auth.Identity{Token: "t"}},
			query: func(state string) url.Values {
				return url.Values{
					"error":             {"access_denied"},
					"error_description": {"The user has denied your application access."},
					"state":             {state},
				}
			},
			status: http.StatusUnauthorized,
			body:   "The user has denied your application access.",
		},
		{
			name:     "missing code",
			provider: &fakeProvider{identity: &auth.Identity{Token: "t"}},
			query: func(state string) url.Values {
				return url.Values{"state": {state}}
			},
			status: http.StatusBadRequest,
			body:   "authorization code",
		},
		{
			name:     "missing verifier",
			provider: &fakeProvider{identity: &auth.Identity{Token: "t"}},
			query: func(state string) url.Values {
				return url.Values{"code": {"c"}, "state": {state}}
			},
			cookies: func(in []*http.Cookie) []*http.Cookie {
				var out []*http.Cookie
				for _, c := range in {
					if c.Name != pkceCookieName {
						out = append(out, c)
					}
				}
				return out
			},
			status: http.StatusBadRequest,
			body:   "expired",
		},
		{
			name:     "exchange error",
			provider: &fakeProvider{err: errors.New("bad_verification_code")},
			query: func(state string) url.Values {
				return url.Values{"code": {"c"}, "state": {state}}
			},
			status: http.StatusBadRequest,
			body:   "Could not complete sign-in",
		},
		{
			name:     "empty provider result",
			provider: &fakeProvider{},
			query: func(state string) url.Values {
				return url.Values{"code": {"c"}, "state": {state}}
			},
			status: http.StatusBadRequest,
			body:   "Could not complete sign-in",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.provider)
			state, cookies := f.startLogin(t)
			if tt.cookies != nil {
				cookies = tt.cookies(cookies)
			}

			rec := f.do(callbackRequest(tt.query(state), cookies))

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			assert.Contains(t, rec.Body.String(), `href="/auth/github"`)
			assert.Nil(t, findCookie(rec, session.CookieName))
		})
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeProvider{})

	saved := httptest.NewRecorder()
	require.NoError(t, f.store.Save(saved, httptest.NewRequest(http.MethodGet, "/", nil), auth.Identity{Token: "t"}))

	req := httptest.NewRequest(http.MethodPost, LogoutPath, nil)
	req.AddCookie(findCookie(saved, session.CookieName))

	rec := f.do(req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	sc := findCookie(rec, session.CookieName)
	require.NotNil(t, sc)
	assert.Negative(t, sc.MaxAge)
}

func TestLogoutRejectsGet(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeProvider{})

	saved := httptest.NewRecorder()
	require.NoError(t, f.store.Save(saved, httptest.NewRequest(http.MethodGet, "/", nil), auth.Identity{Token: "t"}))

	req := httptest.NewRequest(http.MethodGet, LogoutPath, nil)
	req.AddCookie(findCookie(saved, session.CookieName))

	rec := f.do(req)
	assert.NotEqual(t, http.StatusFound, rec.Code)
	assert.Nil(t, findCookie(rec, session.CookieName))
}

func TestPaths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/auth/github", LoginPath("github"))
	assert.Equal(t, "/auth/github/callback", CallbackPath("github"))
}

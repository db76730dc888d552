package handler

import (
	"net/http"

	"strap/internal/auth/provider"
	"strap/internal/logger"
	"strap/internal/metrics"
	"strap/internal/session"
	"strap/internal/web"

	"github.com/gin-gonic/gin"
)

const (
	flowCookiePath = "/auth/"

	LogoutPath = "/auth/logout"
)

// LoginPath is where the session gate sends visitors for a provider.
func LoginPath(providerName string) string {
	return "/auth/" + providerName
}

// CallbackPath is the redirect URL path registered with the provider.
func CallbackPath(providerName string) string {
	return LoginPath(providerName) + "/callback"
}

type Handler struct {
	providers    *provider.Registry
	sessionStore session.Store
	cookieSecure bool
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	cookieSecure bool,
) *Handler {
	return &Handler{
		providers:    registry,
		sessionStore: sessionStore,
		cookieSecure: cookieSecure,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	for _, name := range h.providers.Names() {
		r.GET(LoginPath(name), h.login(name))
		r.GET(CallbackPath(name), h.callback(name))
	}
	r.POST(LogoutPath, h.Logout)
}

func (h *Handler) login(providerName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.providers.Get(providerName)
		if err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		state, err := h.generateState(c)
		if err != nil {
			logger.Error("oauth state generation failed", map[string]any{
				"error": err.Error(),
			})
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		codeChallenge := h.generatePKCE(c)

		c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
	}
}

func (h *Handler) callback(providerName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.providers.Get(providerName)
		if err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		validState := validateState(c)
		codeVerifier := getPKCEVerifier(c)
		h.clearFlowCookies(c)

		if !validState {
			h.fail(c, providerName, "invalid_state", http.StatusBadRequest,
				"The sign-in request expired or did not come from this site.", "")
			return
		}

		// CASE 1: provider error, e.g. the visitor declined access
		if errParam := c.Query("error"); errParam != "" {
			errDesc := c.Query("error_description")
			logger.Warn("oauth callback returned error", map[string]any{
				"provider": providerName,
				"error":    errParam,
				"desc":     errDesc,
			})

			detail := errDesc
			if detail == "" {
				detail = errParam
			}
			h.fail(c, providerName, "denied", http.StatusUnauthorized,
				"GitHub sign-in was not completed.", detail)
			return
		}

		// CASE 2: normal callback
		code := c.Query("code")
		if code == "" {
			h.fail(c, providerName, "missing_code", http.StatusBadRequest,
				"GitHub did not return an authorization code.", "")
			return
		}

		if codeVerifier == "" {
			h.fail(c, providerName, "missing_verifier", http.StatusBadRequest,
				"The sign-in request expired.", "")
			return
		}

		identity, err := p.ExchangeCode(
			c.Request.Context(),
			code,
			codeVerifier,
		)
		if err != nil || identity == nil || identity.Token == "" {
			fields := map[string]any{"provider": providerName}
			if err != nil {
				fields["error"] = err.Error()
			}
			logger.Error("oauth code exchange failed", fields)

			h.fail(c, providerName, "exchange_failed", http.StatusBadRequest,
				"Could not complete sign-in with GitHub.", "")
			return
		}

		if err := h.sessionStore.Save(c.Writer, c.Request, *identity); err != nil {
			logger.Error("session save failed", map[string]any{
				"provider": providerName,
				"error":    err.Error(),
			})
			metrics.AuthCallbacks.WithLabelValues(providerName, "session_error").Inc()
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		metrics.AuthCallbacks.WithLabelValues(providerName, "ok").Inc()
		logger.Info("login success", map[string]any{
			"provider": providerName,
			"login":    identity.Login,
			"ip":       c.ClientIP(),
		})

		c.Redirect(http.StatusFound, "/")
	}
}

func (h *Handler) fail(c *gin.Context, providerName, result string, status int, message, detail string) {
	metrics.AuthCallbacks.WithLabelValues(providerName, result).Inc()
	web.RenderError(c, status, message, detail)
}

// Logout clears the session. It is idempotent.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessionStore.Clear(c.Writer, c.Request); err != nil {
		logger.Warn("session clear failed", map[string]any{
			"error": err.Error(),
		})
	}

	c.Redirect(http.StatusFound, "/")
}

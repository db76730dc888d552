package app

import (
	"context"

	"strap/internal/auth/handler"
	"strap/internal/auth/provider"
	"strap/internal/auth/provider/github"
	"strap/internal/config"
	"strap/internal/logger"
	"strap/internal/middleware"
	"strap/internal/session"
	"strap/internal/strap"
	"strap/internal/web"

	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	// ----------------------------
	// Dependencies
	// ----------------------------

	renderer := strap.NewRenderer(cfg.ScriptPath)
	if err := renderer.Check(); err != nil {
		return nil, nil, err
	}

	githubProvider, err := github.New(
		cfg.GitHubClientID,
		cfg.GitHubClientSecret,
		cfg.CallbackURL(),
	)
	if err != nil {
		return nil, nil, err
	}

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	gin.SetMode(cfg.GinMode)

	router := newRouter(
		infra.Sessions,
		provider.NewRegistry(githubProvider),
		githubProvider.Name(),
		renderer,
		cfg.CookieSecure,
	)

	for _, route := range router.Routes() {
		logger.Debug("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}

	return router, infra.Close, nil
}

// newRouter composes the request pipeline:
// recovery -> request log -> session gate -> auth routes / pages.
func newRouter(
	sessions session.Store,
	registry *provider.Registry,
	loginProvider string,
	renderer web.Renderer,
	cookieSecure bool,
) *gin.Engine {

	gate := middleware.NewAuthMiddleware(sessions, handler.LoginPath(loginProvider))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.GinRequireAuth(gate))
	router.SetHTMLTemplate(web.Templates)

	// ----------------------------
	// Ungated: /auth/...
	// ----------------------------

	handler.NewHandler(registry, sessions, cookieSecure).RegisterRoutes(router)

	// ----------------------------
	// Gated pages
	// ----------------------------

	web.NewHandler(renderer).RegisterRoutes(router)

	return router
}

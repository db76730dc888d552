// Package web serves the signed-in pages: the home page with instructions
// and the customised strap.sh download.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"strap/internal/auth"
	"strap/internal/logger"
	"strap/internal/metrics"
	"strap/internal/middleware"
	"strap/internal/strap"
)

const (
	title = "Strap"

	contentTypeText     = "text/plain; charset=utf-8"
	contentTypeDownload = "application/octet-stream"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates is installed on the router with SetHTMLTemplate.
var Templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type pageData struct {
	Title   string
	Login   string
	Message string
	Detail  string
}

// Renderer renders a script for an identity.
type Renderer interface {
	Render(identity auth.Identity) ([]byte, error)
}

type Handler struct {
	renderer Renderer
}

func NewHandler(renderer Renderer) *Handler {
	return &Handler{renderer: renderer}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.home)
	r.GET("/strap.sh", h.script)
}

func (h *Handler) home(c *gin.Context) {
	data := pageData{Title: title}
	if id, ok := middleware.IdentityFromContext(c.Request.Context()); ok {
		data.Login = id.Login
	}
	c.HTML(http.StatusOK, "root.html", data)
}

func (h *Handler) script(c *gin.Context) {
	id, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		// the gate runs before every route; reaching here is a wiring bug
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	body, err := h.renderer.Render(*id)
	if err != nil {
		if errors.Is(err, strap.ErrTemplateMissing) {
			logger.Error("script template unavailable", map[string]any{
				"error": err.Error(),
			})
		}
		metrics.ScriptsRendered.WithLabelValues("error").Inc()
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	contentType := contentTypeDownload
	if _, ok := c.GetQuery("text"); ok {
		contentType = contentTypeText
	} else {
		c.Header("Content-Disposition", `attachment; filename="strap.sh"`)
	}

	metrics.ScriptsRendered.WithLabelValues("ok").Inc()
	logger.Info("script rendered", map[string]any{
		"login": id.Login,
		"text":  contentType == contentTypeText,
	})

	c.Data(http.StatusOK, contentType, body)
}

// RenderError shows the sign-in error page.
func RenderError(c *gin.Context, status int, message, detail string) {
	c.HTML(status, "error.html", pageData{
		Title:   title,
		Message: message,
		Detail:  detail,
	})
	c.Abort()
}

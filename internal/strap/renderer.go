// Package strap renders the per-visitor bootstrap script.
package strap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"strap/internal/auth"
)

// ErrTemplateMissing means the script template could not be read. It is a
// deployment problem, not something a visitor can cause.
var ErrTemplateMissing = errors.New("strap: script template missing")

// Each placeholder must be a whole line of the template, exactly "KEY=".
// Lines that differ in any way are left as they are.
var placeholder = regexp.MustCompile(`(?m)^(STRAP_GIT_NAME|STRAP_GIT_EMAIL|STRAP_GIT_TOKEN)=$`)

func placeholderValue(key string, identity auth.Identity) string {
	switch key {
	case "STRAP_GIT_NAME":
		return identity.Name
	case "STRAP_GIT_EMAIL":
		return identity.Email
	default:
		return identity.Token
	}
}

// Renderer reads the template from disk on every call; edits to the file
// take effect without a restart.
type Renderer struct {
	path string
}

func NewRenderer(path string) *Renderer {
	return &Renderer{path: path}
}

// Check verifies the template is readable. Called once at startup.
func (r *Renderer) Check() error {
	_, err := r.load()
	return err
}

// Render returns the template with the identity's name, email and token
// filled in.
func (r *Renderer) Render(identity auth.Identity) ([]byte, error) {
	content, err := r.load()
	if err != nil {
		return nil, err
	}
	return []byte(Substitute(content, identity)), nil
}

func (r *Renderer) load() (string, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateMissing, r.path)
		}
		return "", fmt.Errorf("%w: %w", ErrTemplateMissing, err)
	}
	return string(b), nil
}

// Substitute fills the three placeholder lines in content. The template is
// matched once, so filled values are never matched again.
func Substitute(content string, identity auth.Identity) string {
	return placeholder.ReplaceAllStringFunc(content, func(line string) string {
		key := strings.TrimSuffix(line, "=")
		return key + "=" + shellQuote(placeholderValue(key, identity))
	})
}

// shellQuote wraps s in single quotes, escaping embedded single quotes the
// POSIX way.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

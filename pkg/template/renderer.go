package template

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Content is the rendered output handed to a provider gateway.
type Content struct {
	Subject string
	Body    string
}

// Renderer turns a template key, channel, and locale into rendered
// content, falling back to caller-supplied literal content when the key
// is absent or no active template matches. A missing template is a
// defined fallback path, not an error.
type Renderer struct {
	storage Storage
}

// NewRenderer creates a new template renderer.
func NewRenderer(storage Storage) (*Renderer, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	return &Renderer{storage: storage}, nil
}

// Render resolves and interpolates the template for the triple. The
// fallback content is returned unchanged when key is empty or no active
// template matches. Subject and body are interpolated independently;
// variables missing from the bag render as empty strings.
func (r *Renderer) Render(ctx context.Context, key string, ch notification.Channel, locale string, fallback Content, vars map[string]any) (Content, error) {
	if key == "" {
		return fallback, nil
	}

	tpl, err := r.storage.Lookup(ctx, key, ch, locale)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fallback, nil
		}
		return Content{}, fmt.Errorf("failed to look up template %q: %w", key, err)
	}

	return Content{
		Subject: interpolate(tpl.Subject, vars),
		Body:    interpolate(tpl.Body, vars),
	}, nil
}

// interpolate substitutes {{path}} placeholders from the variable bag.
// Paths may be dotted to reach into nested maps.
func interpolate(s string, vars map[string]any) string {
	if s == "" || !strings.Contains(s, "{{") {
		return s
	}

	return fasttemplate.ExecuteFuncString(s, "{{", "}}", func(w io.Writer, tag string) (int, error) {
		v, ok := lookupPath(vars, strings.TrimSpace(tag))
		if !ok || v == nil {
			return 0, nil
		}
		return fmt.Fprintf(w, "%v", v)
	})
}

// lookupPath walks a dotted path through nested map[string]any values.
func lookupPath(vars map[string]any, path string) (any, bool) {
	if vars == nil || path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")
	var cur any = vars
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/go-verify-nosql/internal/domain"
)

type message struct {
	subject string
	body    *template.Template
}

// Templates renders the email for each verification context.
type Templates struct {
	byContext map[domain.CodeContext]message
}

// TemplateSource supplies template overrides by key. Missing keys report
// domain.ErrNotFound.
type TemplateSource interface {
	Fetch(ctx context.Context, key string) (string, error)
}

var defaults = map[domain.CodeContext]struct{ subject, body string }{
	domain.ContextRegister: {
		subject: "Confirm your email address",
		body: `<p>Hi {{.Name}},</p>
<p>Confirm your account by opening the link below:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link expires on {{.ExpiresAt.UTC.Format "Jan 2, 2006 15:04 MST"}}.</p>`,
	},
	domain.ContextReset: {
		subject: "Reset your password",
		body: `<p>Hi {{.Name}},</p>
<p>Someone asked to reset the password for this account. If it was you, open the link below:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link expires on {{.ExpiresAt.UTC.Format "Jan 2, 2006 15:04 MST"}}. If you did not ask for this, ignore this email.</p>`,
	},
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() *Templates {
	t, err := LoadTemplates(context.Background(), nil)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTemplates parses the built-in templates, replacing each body with
// "<context>.html" from src when src holds one. src may be nil.
func LoadTemplates(ctx context.Context, src TemplateSource) (*Templates, error) {
	t := &Templates{byContext: make(map[domain.CodeContext]message, len(defaults))}
	for c, d := range defaults {
		body := d.body
		if src != nil {
			override, err := src.Fetch(ctx, string(c)+".html")
			switch {
			case err == nil:
				body = override
			case !errors.Is(err, domain.ErrNotFound):
				return nil, fmt.Errorf("fetch %s template: %w", c, err)
			}
		}
		tmpl, err := template.New(string(c)).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", c, err)
		}
		t.byContext[c] = message{subject: d.subject, body: tmpl}
	}
	return t, nil
}

// Render returns the subject and HTML body for n.
func (t *Templates) Render(n domain.Notification) (string, string, error) {
	m, ok := t.byContext[n.Context]
	if !ok {
		return "", "", fmt.Errorf("no template for context %q: %w", n.Context, domain.ErrBadRequest)
	}
	var buf bytes.Buffer
	if err := m.body.Execute(&buf, n); err != nil {
		return "", "", fmt.Errorf("render %s template: %w", n.Context, err)
	}
	return m.subject, buf.String(), nil
}

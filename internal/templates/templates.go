// Package templates renders the interactive authorization pages.
package templates

import (
	"embed"
	"html/template"
	"io"
)

//go:embed html/*.html
var content embed.FS

// Templates manages the HTML templates.
type Templates struct {
	login *template.Template
	error *template.Template
}

// LoadTemplates loads and parses all HTML templates.
func LoadTemplates() (*Templates, error) {
	t := &Templates{}
	var err error

	if t.login, err = template.ParseFS(content, "html/login.html", "html/layout.html"); err != nil {
		return nil, err
	}
	if t.error, err = template.ParseFS(content, "html/error.html", "html/layout.html"); err != nil {
		return nil, err
	}

	return t, nil
}

// LoginData holds data for the account linking form. The authorization
// query parameters ride along as hidden fields so the POST can resume
// the flow.
type LoginData struct {
	CSRFToken    string
	ClientID     string
	ResponseType string
	RedirectURI  string
	State        string
	Error        string
}

// RenderLogin renders the account linking form.
func (t *Templates) RenderLogin(w io.Writer, data LoginData) error {
	return t.login.ExecuteTemplate(w, "layout", data)
}

// ErrorData holds data for the error page.
type ErrorData struct {
	Title   string
	Message string
}

// RenderError renders the error page.
func (t *Templates) RenderError(w io.Writer, data ErrorData) error {
	return t.error.ExecuteTemplate(w, "layout", data)
}

// Package web holds the HTML templates rendered by the page handlers.
package web

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	HomepageTemplate = "homepage.html"
	UploadTemplate   = "upload.html"
)

var funcs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04 MST")
	},
}

// Templates parses the embedded page templates. It panics on a malformed template.
func Templates() *template.Template {
	return template.Must(template.New("pages").Funcs(funcs).ParseFS(templateFiles, "templates/*.html"))
}

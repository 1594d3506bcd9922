package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/serverhub/internal/infrastructure/logger"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

var pageNames = []string{"home", "login", "register", "dashboard", "page", "error"}

// Views holds the parsed HTML templates, one set per page
type Views struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewViews parses the embedded templates
func NewViews(logger *slog.Logger) (*Views, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Views{pages: make(map[string]*template.Template, len(pageNames)), logger: logger}
	for _, name := range pageNames {
		t, err := template.New(name).ParseFS(webFS, "web/templates/layout.html", "web/templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// StaticHandler serves the embedded stylesheet and assets under /static/
func StaticHandler() http.Handler {
	sub, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

// render buffers the page so a template error never leaves a half-written response
func (v *Views) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, ok := v.pages[name]
	if !ok {
		v.logger.Error("unknown template", slog.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.logger.Error("failed to render template",
			slog.String("request_id", logger.RequestID(r.Context())),
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorView struct {
	siteView
	Title   string
	Message string
}

func (v *Views) renderError(w http.ResponseWriter, r *http.Request, status int) {
	view := errorView{Title: "Something went wrong", Message: "Please try again in a moment."}
	switch status {
	case http.StatusNotFound:
		view = errorView{Title: "Page not found", Message: "There is no published server page here."}
	case http.StatusServiceUnavailable:
		view = errorView{Title: "Temporarily unavailable", Message: "This page cannot be loaded right now. Please try again shortly."}
	}
	view.SignedIn = signedIn(r)
	v.render(w, r, status, "error", view)
}

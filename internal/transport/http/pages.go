package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type placeholder struct {
	Status  int
	Title   string
	Message string
}

var (
	pageNotFound = placeholder{
		Status:  http.StatusNotFound,
		Title:   "Link not found",
		Message: "This short link does not exist or has been removed.",
	}
	pageExpired = placeholder{
		Status:  http.StatusGone,
		Title:   "Link expired",
		Message: "This short link is no longer active.",
	}
	pagePasswordRequired = placeholder{
		Status:  http.StatusUnauthorized,
		Title:   "Password required",
		Message: "This link is password protected. Unlock it to continue.",
	}
	pageUnavailable = placeholder{
		Status:  http.StatusServiceUnavailable,
		Title:   "Temporarily unavailable",
		Message: "We could not resolve this link right now. Please try again shortly.",
	}
)

func writePlaceholder(w http.ResponseWriter, p placeholder) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(p.Status)
	if err := pages.ExecuteTemplate(w, "placeholder.html", p); err != nil {
		logger.Error("failed to render placeholder page", zap.Error(err), zap.Int("status", p.Status))
	}
}

func writeRewrite(w http.ResponseWriter, target, title string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	data := struct {
		Title  string
		Target string
	}{Title: title, Target: target}
	if err := pages.ExecuteTemplate(w, "rewrite.html", data); err != nil {
		logger.Error("failed to render rewrite page", zap.Error(err))
	}
}

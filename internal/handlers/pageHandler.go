package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"os"

	"github.com/akolanti/CSDAssistant/internal/adapter"
	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

var pages = template.Must(template.ParseFS(webFS, "web/templates/*.html"))

type chatPage struct {
	Page      PageSettings
	Icon      template.URL
	HasHeader bool
	HasStyles bool
	Recording bool
	Messages  []adapter.MessageView
}

type failedPage struct {
	Title   string
	Icon    template.URL
	Message string
}

// PageHandler renders the chat widget with the conversation of the session.
func PageHandler(w http.ResponseWriter, r *http.Request) {
	if isFailed() {
		renderPage(w, http.StatusServiceUnavailable, "error.html", failedPage{
			Title:   settings.UI.PageTitle,
			Icon:    iconURL(settings.UI.PageIcon),
			Message: failureMessage(),
		})
		return
	}

	session, err := chatService.History(r.Context(), sessionId(r.Context()))
	if err != nil {
		logRH.WithTrace(r.Context()).Error("could not load session for page", "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	renderPage(w, http.StatusOK, "chat.html", chatPage{
		Page:      settings,
		Icon:      iconURL(settings.UI.PageIcon),
		HasHeader: fileExists(settings.UI.HeaderImage),
		HasStyles: fileExists(settings.UI.CSSFilePath),
		Recording: session.State == chatModel.StateRecording,
		Messages:  adapter.ToMessageViews(session.Messages),
	})
}

func renderPage(w http.ResponseWriter, code int, name string, data any) {
	//render first so a template error does not leave half a page behind
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logRH.Error("could not render page", "template", name, "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logRH.Error("could not write page", "error", err)
	}
}

// HeaderImageHandler serves the optional banner configured in ui.header_image.
func HeaderImageHandler(w http.ResponseWriter, r *http.Request) {
	if !fileExists(settings.UI.HeaderImage) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, settings.UI.HeaderImage)
}

// StylesHandler serves the optional stylesheet override, empty when absent.
func StylesHandler(w http.ResponseWriter, r *http.Request) {
	if !fileExists(settings.UI.CSSFilePath) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	http.ServeFile(w, r, settings.UI.CSSFilePath)
}

// StaticHandler serves the embedded widget script and stylesheet under /static/.
func StaticHandler() http.Handler {
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(static)))
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logRH.Warn("could not stat asset", "path", path, "error", err)
		}
		return false
	}
	return !info.IsDir()
}

func iconURL(icon string) template.URL {
	if icon == "" {
		return ""
	}
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><text y=".9em" font-size="90">` +
		template.HTMLEscapeString(icon) + `</text></svg>`
	return template.URL("data:image/svg+xml," + url.PathEscape(svg))
}

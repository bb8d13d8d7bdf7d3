package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/CSDAssistant/internal/adapter/utils"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/middleware"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	CloseServices    context.CancelFunc
}

func NewRouter() *chi.Mux {
	r := utils.NewRouter()

	r.Router.Get("/", middleware.PageHandler)
	r.Router.Get("/healthz", middleware.HealthHandler)
	r.Router.Get("/static/*", middleware.StaticHandler)
	r.Router.Get("/assets/header", middleware.HeaderImageHandler)
	r.Router.Get("/assets/styles.css", middleware.StylesHandler)

	r.Router.Route("/api", func(api chi.Router) {
		api.Post("/chat", middleware.ChatHandler)
		api.Post("/voice", middleware.VoiceHandler)
		api.Post("/recording/start", middleware.StartRecordingHandler)
		api.Post("/recording/cancel", middleware.CancelRecordingHandler)
		api.Get("/history", middleware.HistoryHandler)
	})
	return r.Router
}

func CreateServer(listenAddr string) {
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      NewRouter(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			//in flight turns finish before this returns
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}

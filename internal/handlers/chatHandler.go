package handlers

import (
	"context"
	"fmt"

	"github.com/akolanti/CSDAssistant/internal/chat"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

var logRH = logger_i.NewLogger("Request Handler")

var (
	chatService *chat.Service
	settings    PageSettings
	startupErr  error
)

// PageSettings is everything the page shows besides the conversation.
type PageSettings struct {
	UI          config.UIConfig
	Chunks      int
	Index       string
	Model       string
	Sessions    string
	VoiceInput  bool
	VoiceOutput bool
	//optional, checked by /healthz
	SessionCheck func(ctx context.Context) error
}

func (p PageSettings) Diagnostic() string {
	return fmt.Sprintf("Fragmentos indexados: %d · índice: %s · modelo: %s", p.Chunks, p.Index, p.Model)
}

func InitChatHandler(service *chat.Service, page PageSettings) {
	chatService = service
	settings = page
	startupErr = nil
}

// InitFailedMode keeps the server up only to report why the assistant is down.
func InitFailedMode(err error, page PageSettings) {
	chatService = nil
	settings = page
	startupErr = err
}

func isFailed() bool {
	return startupErr != nil || chatService == nil
}

func failureMessage() string {
	if startupErr == nil {
		return "Ocurrió un error crítico al inicializar la IA."
	}
	return "Ocurrió un error crítico al inicializar la IA: " + startupErr.Error()
}

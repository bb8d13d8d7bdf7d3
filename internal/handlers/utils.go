package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akolanti/CSDAssistant/internal/adapter"
	"github.com/akolanti/CSDAssistant/internal/api"
	"github.com/akolanti/CSDAssistant/internal/chat"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
)

const (
	msgEmptyInput   = "Escribe una pregunta antes de enviar."
	msgRecording    = "Hay una grabación en curso."
	msgNotRecording = "No hay ninguna grabación en curso."
	msgTimeout      = "La respuesta tardó demasiado. Por favor, intenta de nuevo."
	msgInternal     = "Ocurrió un error inesperado. Por favor, intenta de nuevo."
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string, retry bool) {
	writeJsonResponse(w, httpCode, adapter.ToErrorResponse(httpCode, message, retry))
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithTrace(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func sessionId(ctx context.Context) string {
	id, _ := ctx.Value(config.SESSION_ID_KEY).(string)
	return id
}

// errorStatus maps service errors to a status code, a message for the visitor
// and whether trying again may help.
func errorStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, chatModel.ErrEmptyInput):
		return http.StatusBadRequest, msgEmptyInput, false
	case errors.Is(err, chatModel.ErrRecordingInProgress):
		return http.StatusConflict, msgRecording, false
	case errors.Is(err, chatModel.ErrNotRecording):
		return http.StatusConflict, msgNotRecording, false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgTimeout, true
	case errors.Is(err, chat.ErrGenerationFailed):
		return http.StatusBadGateway, "No pude generar una respuesta en este momento. Por favor, intenta de nuevo.", true
	default:
		return http.StatusInternalServerError, msgInternal, true
	}
}

func writeTurnError(w http.ResponseWriter, id string, result chatModel.TurnResult, err error) {
	code, message, retry := errorStatus(err)
	res := adapter.ToTurnResponse(id, result)
	res.Error = &api.OutgoingError{Code: code, Message: message, Retry: retry}
	writeJsonResponse(w, code, res)
}

func writeServiceUnavailable(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusServiceUnavailable, failureMessage(), false)
}

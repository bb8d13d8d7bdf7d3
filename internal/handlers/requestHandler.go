package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/akolanti/CSDAssistant/internal/adapter"
	"github.com/akolanti/CSDAssistant/internal/api"
	"github.com/akolanti/CSDAssistant/internal/config"
)

// ChatHandler godoc
// @Summary      Ask a question in text
// @Description  Runs one turn for the session in the cookie: language detection, retrieval, generation and speech synthesis. Both messages are returned and saved together, or neither is.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest    true  "Question"
// @Success      200      {object}  api.TurnResponse   "Answered; warnings may report a missing audio reply"
// @Failure      400      {object}  api.ErrorResponse  "Empty or malformed question"
// @Failure      409      {object}  api.TurnResponse   "A recording is in progress"
// @Failure      502      {object}  api.TurnResponse   "The answer could not be generated, can be retried"
// @Failure      503      {object}  api.ErrorResponse  "Assistant failed to start"
// @Router       /api/chat [post]
func ChatHandler(w http.ResponseWriter, r *http.Request) {
	if isFailed() {
		writeServiceUnavailable(w)
		return
	}
	if !validateContext(r.Context()) {
		return
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the chat handler reader", "error", err)
		}
	}(r.Body)

	var requestData api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logRH.WithTrace(r.Context()).Warn("Bad chat request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", false)
		return
	}
	if strings.TrimSpace(requestData.Message) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, msgEmptyInput, false)
		return
	}

	id := sessionId(r.Context())
	result, err := chatService.SubmitText(r.Context(), id, requestData.Message)
	if err != nil {
		writeTurnError(w, id, result, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToTurnResponse(id, result))
}

// VoiceHandler godoc
// @Summary      Ask a question by voice
// @Description  Accepts a 16 kHz mono WAV (or raw LINEAR16) recording, ends the recording state and runs the turn on the transcript. An unintelligible recording is reported as a warning and nothing is saved.
// @Tags         Chat
// @Accept       multipart/form-data
// @Produce      json
// @Param        audio  formData  file              true  "Recorded question"
// @Success      200    {object}  api.TurnResponse   "Answered, or a transcription warning"
// @Failure      400    {object}  api.ErrorResponse  "Missing audio"
// @Failure      413    {object}  api.ErrorResponse  "Recording too large"
// @Failure      502    {object}  api.TurnResponse   "The answer could not be generated, can be retried"
// @Failure      503    {object}  api.ErrorResponse  "Assistant failed to start"
// @Router       /api/voice [post]
func VoiceHandler(w http.ResponseWriter, r *http.Request) {
	if isFailed() {
		writeServiceUnavailable(w)
		return
	}
	if !validateContext(r.Context()) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxAudioUploadSize)
	if err := r.ParseMultipartForm(config.MaxAudioUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "La grabación es demasiado larga.", false)
			return
		}
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", false)
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "audio is required", false)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Could not read audio", false)
		return
	}

	id := sessionId(r.Context())
	result, err := chatService.SubmitVoice(r.Context(), id, audio)
	if err != nil {
		writeTurnError(w, id, result, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToTurnResponse(id, result))
}

// StartRecordingHandler godoc
// @Summary      Start recording
// @Description  Moves the session to the Recording state; text questions are refused until the audio arrives or the recording is cancelled.
// @Tags         Recording
// @Produce      json
// @Success      200  {object}  api.SessionResponse
// @Failure      409  {object}  api.ErrorResponse  "Already recording"
// @Router       /api/recording/start [post]
func StartRecordingHandler(w http.ResponseWriter, r *http.Request) {
	if isFailed() {
		writeServiceUnavailable(w)
		return
	}
	session, err := chatService.StartRecording(r.Context(), sessionId(r.Context()))
	if err != nil {
		code, message, retry := errorStatus(err)
		WriteErrorResponse(w, code, message, retry)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSessionResponse(session))
}

// CancelRecordingHandler godoc
// @Summary      Cancel recording
// @Description  Returns the session to Idle without running a turn.
// @Tags         Recording
// @Produce      json
// @Success      200  {object}  api.SessionResponse
// @Failure      409  {object}  api.ErrorResponse  "Not recording"
// @Router       /api/recording/cancel [post]
func CancelRecordingHandler(w http.ResponseWriter, r *http.Request) {
	if isFailed() {
		writeServiceUnavailable(w)
		return
	}
	session, err := chatService.CancelRecording(r.Context(), sessionId(r.Context()))
	if err != nil {
		code, message, retry := errorStatus(err)
		WriteErrorResponse(w, code, message, retry)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSessionResponse(session))
}

// HistoryHandler godoc
// @Summary      Conversation so far
// @Description  Returns the ordered message log of the session in the cookie, starting with the welcome message.
// @Tags         Chat
// @Produce      json
// @Success      200  {object}  api.SessionResponse
// @Failure      503  {object}  api.ErrorResponse  "Assistant failed to start"
// @Router       /api/history [get]
func HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if isFailed() {
		writeServiceUnavailable(w)
		return
	}
	session, err := chatService.History(r.Context(), sessionId(r.Context()))
	if err != nil {
		logRH.WithTrace(r.Context()).Error("could not load history", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, msgInternal, true)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSessionResponse(session))
}

// HealthHandler godoc
// @Summary      Health
// @Description  Reports whether the assistant started, with the index size, the models in use and the session backend. A session store that stops answering turns the status to degraded.
// @Tags         Status
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Failure      503  {object}  api.HealthResponse
// @Router       /healthz [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	res := api.HealthResponse{
		Status:      "ok",
		Chunks:      settings.Chunks,
		Index:       settings.Index,
		Model:       settings.Model,
		Sessions:    settings.Sessions,
		VoiceInput:  settings.VoiceInput,
		VoiceOutput: settings.VoiceOutput,
	}
	if isFailed() {
		res.Status = "failed"
		res.Error = failureMessage()
		writeJsonResponse(w, http.StatusServiceUnavailable, res)
		return
	}
	if settings.SessionCheck != nil {
		if err := settings.SessionCheck(r.Context()); err != nil {
			logRH.WithTrace(r.Context()).Warn("session store check failed", "error", err)
			res.Status = "degraded"
			res.Error = "el almacén de sesiones no responde"
		}
	}
	writeJsonResponse(w, http.StatusOK, res)
}

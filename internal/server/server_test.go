package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/akolanti/CSDAssistant/internal/api"
	"github.com/akolanti/CSDAssistant/internal/chat"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/data/store"
	"github.com/akolanti/CSDAssistant/internal/handlers"
	"github.com/akolanti/CSDAssistant/internal/language"
	"github.com/akolanti/CSDAssistant/internal/rag"
	"github.com/akolanti/CSDAssistant/internal/rag/llm"
	"github.com/akolanti/CSDAssistant/internal/rag/rag_test"
	"github.com/akolanti/CSDAssistant/internal/rag/vectorDB/chromemDB"
	"github.com/akolanti/CSDAssistant/internal/speech"
)

const welcome = "¡Hola! Soy el asistente virtual del CSD. ¿En qué puedo ayudarte?"

// every request gets its own ip so the turn rate limit never trips a test by accident
var nextIP atomic.Int32

type fakeTTS struct{}

func (fakeTTS) Synthesize(ctx context.Context, text string, voice language.Voice) ([]byte, error) {
	return []byte("mp3"), nil
}

type fakeSTT struct {
	OnTranscribe func(ctx context.Context, audio []byte) (speech.Transcript, error)
}

func (f fakeSTT) Transcribe(ctx context.Context, audio []byte) (speech.Transcript, error) {
	if f.OnTranscribe != nil {
		return f.OnTranscribe(ctx, audio)
	}
	return speech.Transcript{Text: "¿Quién es el rector?", LanguageCode: "es-co"}, nil
}

func settingsFor(chunks int) handlers.PageSettings {
	ui := config.Defaults().UI
	ui.HeaderImage = ""
	ui.CSSFilePath = ""
	return handlers.PageSettings{UI: ui, Chunks: chunks, Index: "chromem", Model: "gemini-1.5-flash", VoiceInput: true, VoiceOutput: true}
}

func setupAssistant(t *testing.T, provider llm.Provider, stt speech.Recognizer) http.Handler {
	t.Helper()
	path := filepath.Join(t.TempDir(), "documento.txt")
	doc := "Manual de convivencia.\n\nEl rector es Juan Pérez. La coordinadora académica es María Gómez."
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	index, err := chromemDB.NewIndex("server")
	if err != nil {
		t.Fatal(err)
	}
	ragService := rag.NewService(index, provider, &rag_test.KeywordEmbedder{}, false)
	stats, err := ragService.IngestDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}
	service := chat.NewService(store.InitInMemorySessionStore(), ragService, fakeTTS{}, stt, welcome)
	handlers.InitChatHandler(service, settingsFor(stats.Chunks))
	return NewRouter()
}

func do(t *testing.T, h http.Handler, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req.RemoteAddr = fmt.Sprintf("192.0.2.%d:4000", nextIP.Add(1)%250+1)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == config.SessionCookieName {
			return c
		}
	}
	t.Fatal("Expected a session cookie")
	return nil
}

func chatRequest(message string) *http.Request {
	body, _ := json.Marshal(api.ChatRequest{Message: message})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("could not decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func TestPage_RendersWelcomeAndDiagnostic(t *testing.T) {
	h := setupAssistant(t, &rag_test.ReaderLLM{}, fakeSTT{})

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{welcome, "Fragmentos indexados: 1 · índice: chromem · modelo: gemini-1.5-flash", "Visita la Página Web Oficial del Colegio", `id="mic"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page is missing %q", want)
		}
	}
	sessionCookie(t, rr)
}

func TestChat_AnswerThenHistory(t *testing.T) {
	h := setupAssistant(t, &rag_test.ReaderLLM{}, fakeSTT{})
	cookie := sessionCookie(t, do(t, h, httptest.NewRequest(http.MethodGet, "/", nil), nil))

	rr := do(t, h, chatRequest("¿Quién es el rector?"), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	turn := decode[api.TurnResponse](t, rr)
	if turn.SessionId != cookie.Value {
		t.Errorf("turn ran on session %s, want %s", turn.SessionId, cookie.Value)
	}
	if turn.Assistant == nil || !strings.Contains(turn.Assistant.Content, "Juan Pérez") {
		t.Fatalf("Expected the rector in the answer, got %+v", turn.Assistant)
	}
	if turn.Assistant.AudioBase64 == "" || turn.Language != "es" || len(turn.Warnings) != 0 {
		t.Errorf("Expected spanish voiced answer, got %+v", turn)
	}

	history := decode[api.SessionResponse](t, do(t, h, httptest.NewRequest(http.MethodGet, "/api/history", nil), cookie))
	if len(history.Messages) != 3 {
		t.Fatalf("Expected welcome plus one turn, got %d messages", len(history.Messages))
	}
	if history.Messages[1].Role != "user" || history.Messages[2].Role != "assistant" {
		t.Errorf("turn saved out of order: %+v", history.Messages)
	}
}

func TestChat_BadRequests(t *testing.T) {
	h := setupAssistant(t, &rag_test.ReaderLLM{}, fakeSTT{})

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"blank message", chatRequest("   "), http.StatusBadRequest},
		{"not json", httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{")), http.StatusBadRequest},
		{"voice without audio", httptest.NewRequest(http.MethodPost, "/api/voice", nil), http.StatusBadRequest},
		{"cancel while idle", httptest.NewRequest(http.MethodPost, "/api/recording/cancel", nil), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.req, nil)
			if rr.Code != tt.code {
				t.Fatalf("Expected %d, got %d: %s", tt.code, rr.Code, rr.Body.String())
			}
			res := decode[api.ErrorResponse](t, rr)
			if res.Error.Code != tt.code || res.Error.Retry {
				t.Errorf("unexpected error body %+v", res.Error)
			}
		})
	}
}

func TestRecording_BlocksTextUntilCancelled(t *testing.T) {
	h := setupAssistant(t, &rag_test.ReaderLLM{}, fakeSTT{})
	rr := do(t, h, httptest.NewRequest(http.MethodPost, "/api/recording/start", nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("start got %d", rr.Code)
	}
	cookie := sessionCookie(t, rr)
	if s := decode[api.SessionResponse](t, rr); s.State != "Recording" {
		t.Errorf("Expected Recording, got %s", s.State)
	}

	if rr := do(t, h, httptest.NewRequest(http.MethodPost, "/api/recording/start", nil), cookie); rr.Code != http.StatusConflict {
		t.Errorf("second start got %d, want 409", rr.Code)
	}
	if rr := do(t, h, chatRequest("¿Quién es el rector?"), cookie); rr.Code != http.StatusConflict {
		t.Errorf("text while recording got %d, want 409", rr.Code)
	}
	if rr := do(t, h, httptest.NewRequest(http.MethodPost, "/api/recording/cancel", nil), cookie); rr.Code != http.StatusOK {
		t.Errorf("cancel got %d", rr.Code)
	}
	if rr := do(t, h, chatRequest("¿Quién es el rector?"), cookie); rr.Code != http.StatusOK {
		t.Errorf("text after cancel got %d", rr.Code)
	}
}

func voiceRequest(t *testing.T, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio", "recording.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/voice", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestVoice_Turn(t *testing.T) {
	h := setupAssistant(t, &rag_test.ReaderLLM{}, fakeSTT{})
	cookie := sessionCookie(t, do(t, h, httptest.NewRequest(http.MethodPost, "/api/recording/start", nil), nil))

	rr := do(t, h, voiceRequest(t, []byte("RIFF....")), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	turn := decode[api.TurnResponse](t, rr)
	if turn.User == nil || turn.User.Content != "¿Quién es el rector?" {
		t.Errorf("Expected the transcript as the user message, got %+v", turn.User)
	}
	if turn.Assistant == nil || !strings.Contains(turn.Assistant.Content, "Juan Pérez") {
		t.Errorf("Expected an answer, got %+v", turn.Assistant)
	}
}

func TestVoice_NotUnderstood(t *testing.T) {
	stt := fakeSTT{OnTranscribe: func(ctx context.Context, audio []byte) (speech.Transcript, error) {
		return speech.Transcript{}, speech.ErrNotUnderstood
	}}
	h := setupAssistant(t, &rag_test.ReaderLLM{}, stt)
	cookie := sessionCookie(t, do(t, h, httptest.NewRequest(http.MethodPost, "/api/recording/start", nil), nil))

	rr := do(t, h, voiceRequest(t, []byte("noise")), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	turn := decode[api.TurnResponse](t, rr)
	if len(turn.Warnings) != 1 || turn.Warnings[0].Step != "STT" || turn.Assistant != nil {
		t.Errorf("Expected only a transcription warning, got %+v", turn)
	}

	history := decode[api.SessionResponse](t, do(t, h, httptest.NewRequest(http.MethodGet, "/api/history", nil), cookie))
	if len(history.Messages) != 1 || history.State != "Idle" {
		t.Errorf("Expected idle session with only the welcome, got %+v", history)
	}
}

func TestChat_GenerationFailureCanRetry(t *testing.T) {
	failing := &rag_test.MockLLM{OnGenerate: func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota")
	}}
	h := setupAssistant(t, failing, fakeSTT{})

	rr := do(t, h, chatRequest("¿Quién es el rector?"), nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rr.Code)
	}
	turn := decode[api.TurnResponse](t, rr)
	if turn.Error == nil || !turn.Error.Retry {
		t.Errorf("Expected a retryable error, got %+v", turn.Error)
	}
	if turn.User != nil || turn.Assistant != nil {
		t.Error("Expected no messages from a failed turn")
	}
}

func TestFailedMode(t *testing.T) {
	handlers.InitFailedMode(config.ErrMissingAPIKey, settingsFor(0))
	h := NewRouter()

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Ocurrió un error crítico al inicializar la IA: GOOGLE_API_KEY no está configurada") {
		t.Errorf("error page missing the cause: %s", body)
	}
	if strings.Contains(body, `id="composer"`) {
		t.Error("chat interface rendered in failed mode")
	}

	for _, req := range []*http.Request{chatRequest("hola"), httptest.NewRequest(http.MethodGet, "/api/history", nil), httptest.NewRequest(http.MethodGet, "/healthz", nil)} {
		if rr := do(t, h, req, nil); rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s got %d, want 503", req.URL.Path, rr.Code)
		}
	}
}

func TestHealthAndStatic(t *testing.T) {
	h := setupAssistant(t, &rag_test.ReaderLLM{}, fakeSTT{})

	health := decode[api.HealthResponse](t, do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil))
	if health.Status != "ok" || health.Chunks != 1 || health.Index != "chromem" {
		t.Errorf("unexpected health %+v", health)
	}
	for _, path := range []string{"/static/app.js", "/static/widget.css", "/assets/styles.css"} {
		if rr := do(t, h, httptest.NewRequest(http.MethodGet, path, nil), nil); rr.Code != http.StatusOK {
			t.Errorf("%s got %d", path, rr.Code)
		}
	}
	if rr := do(t, h, httptest.NewRequest(http.MethodGet, "/assets/header", nil), nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing header image got %d, want 404", rr.Code)
	}
}

package chatModel

import (
	"context"
	"errors"
	"time"
)

type Role string

type SessionState string

type InternalStatus string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"

	StateIdle      SessionState = "Idle"
	StateRecording SessionState = "Recording"

	TurnInit          InternalStatus = "Init"
	TranscribeCall    InternalStatus = "STT"
	LanguageDetection InternalStatus = "LanguageDetection"
	RetrievalCall     InternalStatus = "Retrieval"
	LLMCall           InternalStatus = "LLM"
	TTSCall           InternalStatus = "TTS"
	SessionSave       InternalStatus = "SessionSave"
	Complete          InternalStatus = "Complete"
)

var (
	ErrRecordingInProgress = errors.New("recording in progress")
	ErrNotRecording        = errors.New("not recording")
	ErrEmptyInput          = errors.New("empty input")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExists       = errors.New("session already exists")
	ErrSessionCorrupt      = errors.New("session is corrupt")
)

type Message struct {
	Id        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"`
	Audio     []byte    `json:"audio,omitempty"` //mp3 of the latest reply, never stored
	CreatedAt time.Time `json:"created_at"`
}

// Session is owned by one browser; its log is append-only.
type Session struct {
	Id        string       `json:"id"`
	Messages  []Message    `json:"messages"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
}

func (s *Session) StartRecording() error {
	if s.State == StateRecording {
		return ErrRecordingInProgress
	}
	s.State = StateRecording
	return nil
}

func (s *Session) CancelRecording() error {
	if s.State != StateRecording {
		return ErrNotRecording
	}
	s.State = StateIdle
	return nil
}

// FinishRecording is the audio-delivered transition. Audio that arrives while
// idle is accepted too, the browser may deliver it without a start event.
func (s *Session) FinishRecording() {
	s.State = StateIdle
}

func (s *Session) CanSubmitText() error {
	if s.State == StateRecording {
		return ErrRecordingInProgress
	}
	return nil
}

// TurnWarning is a per-turn recoverable problem shown inline.
type TurnWarning struct {
	Step    InternalStatus `json:"step"`
	Message string         `json:"message"`
}

type TurnResult struct {
	User       *Message       `json:"user,omitempty"`
	Assistant  *Message       `json:"assistant,omitempty"`
	Language   string         `json:"language,omitempty"`
	Warnings   []TurnWarning  `json:"warnings,omitempty"`
	Step       InternalStatus `json:"step"`
	Sources    []int          `json:"sources,omitempty"` //page numbers
	Compressed bool           `json:"compressed"`
}

// SessionStore reports a missing session as found=false and a failed read
// as an error. Create fails with ErrSessionExists instead of replacing a log;
// Delete is the only way to drop one.
type SessionStore interface {
	Get(ctx context.Context, id string) (Session, bool, error)
	Create(ctx context.Context, id string, welcome Message) (Session, error)
	AppendTurn(ctx context.Context, id string, user Message, assistant Message) error
	SetState(ctx context.Context, id string, state SessionState) error
	Delete(ctx context.Context, id string) error
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/CSDAssistant/internal/adapter/utils"
	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
	"github.com/akolanti/CSDAssistant/internal/language"
	"github.com/akolanti/CSDAssistant/internal/metrics"
	"github.com/akolanti/CSDAssistant/internal/rag"
	"github.com/akolanti/CSDAssistant/internal/speech"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

var ErrGenerationFailed = errors.New("no se pudo generar la respuesta")

const generationWarning = "No pude generar una respuesta en este momento. Por favor, intenta de nuevo."

// Service runs turns. Turns of one session never overlap, turns of different
// sessions share only the read-only rag service and speech clients.
type Service struct {
	store   chatModel.SessionStore
	rag     rag.Service
	tts     speech.Synthesizer
	stt     speech.Recognizer
	welcome string
	locksMu sync.Mutex
	locks   map[string]*sessionLock
	logger  *logger_i.Logger
}

// sessionLock lives only while some call holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(store chatModel.SessionStore, ragService rag.Service, tts speech.Synthesizer, stt speech.Recognizer, welcome string) *Service {
	return &Service{
		store:   store,
		rag:     ragService,
		tts:     tts,
		stt:     stt,
		welcome: welcome,
		locks:   make(map[string]*sessionLock),
		logger:  logger_i.NewLogger("Chat Service"),
	}
}

func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		defer s.locksMu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
	}
}

// History returns the session log, seeding the welcome message on first use.
func (s *Service) History(ctx context.Context, id string) (chatModel.Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.ensure(ctx, id)
}

// ensure never recreates a session it failed to read. A corrupt session is
// dropped and seeded again, otherwise the cookie stays broken until it expires.
func (s *Service) ensure(ctx context.Context, id string) (chatModel.Session, error) {
	session, found, err := s.store.Get(ctx, id)
	if errors.Is(err, chatModel.ErrSessionCorrupt) {
		s.logger.WithTrace(ctx).Error("session log lost, starting a new one", "sessionId", id, "error", err)
		if err := s.store.Delete(ctx, id); err != nil {
			return chatModel.Session{}, fmt.Errorf("dropping corrupt session: %w", err)
		}
		found, err = false, nil
	}
	if err != nil {
		s.logger.WithTrace(ctx).Error("could not read session", "sessionId", id, "error", err)
		return chatModel.Session{}, fmt.Errorf("reading session: %w", err)
	}
	if found {
		return session, nil
	}
	welcome := chatModel.Message{
		Id:        utils.GetNewUUID(),
		Role:      chatModel.RoleAssistant,
		Content:   s.welcome,
		Language:  language.Default.Code(),
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.store.Create(ctx, id, welcome)
	if errors.Is(err, chatModel.ErrSessionExists) {
		session, found, err = s.store.Get(ctx, id)
		if err == nil && !found {
			err = chatModel.ErrSessionNotFound
		}
		return session, err
	}
	return created, err
}

func (s *Service) StartRecording(ctx context.Context, id string) (chatModel.Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.transition(ctx, id, (*chatModel.Session).StartRecording)
}

func (s *Service) CancelRecording(ctx context.Context, id string) (chatModel.Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.transition(ctx, id, (*chatModel.Session).CancelRecording)
}

func (s *Service) transition(ctx context.Context, id string, apply func(*chatModel.Session) error) (chatModel.Session, error) {
	session, err := s.ensure(ctx, id)
	if err != nil {
		return chatModel.Session{}, err
	}
	if err := apply(&session); err != nil {
		return session, err
	}
	if err := s.store.SetState(ctx, id, session.State); err != nil {
		return chatModel.Session{}, err
	}
	return session, nil
}

func (s *Service) SubmitText(ctx context.Context, id string, text string) (chatModel.TurnResult, error) {
	unlock := s.lock(id)
	defer unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return chatModel.TurnResult{Step: chatModel.TurnInit}, chatModel.ErrEmptyInput
	}
	session, err := s.ensure(ctx, id)
	if err != nil {
		return chatModel.TurnResult{Step: chatModel.TurnInit}, err
	}
	if err := session.CanSubmitText(); err != nil {
		return chatModel.TurnResult{Step: chatModel.TurnInit}, err
	}
	return s.runTurn(ctx, id, text, chatModel.TurnResult{Step: chatModel.TurnInit})
}

// SubmitVoice finishes the recording and runs the turn on the transcript.
// A failed transcription is a warning, generation never runs on it.
func (s *Service) SubmitVoice(ctx context.Context, id string, audio []byte) (chatModel.TurnResult, error) {
	unlock := s.lock(id)
	defer unlock()

	result := chatModel.TurnResult{Step: chatModel.TranscribeCall}
	session, err := s.ensure(ctx, id)
	if err != nil {
		return result, err
	}
	session.FinishRecording()
	if err := s.store.SetState(ctx, id, session.State); err != nil {
		return result, err
	}

	transcript, err := s.transcribe(ctx, audio)
	if err != nil {
		s.logger.WithTrace(ctx).Warn("transcription failed", "sessionId", id, "error", err)
		return s.warn(result, chatModel.TranscribeCall, speech.Warning(err)), nil
	}
	return s.runTurn(ctx, id, transcript.Text, result)
}

func (s *Service) transcribe(ctx context.Context, audio []byte) (speech.Transcript, error) {
	if s.stt == nil {
		return speech.Transcript{}, speech.ErrUnavailable
	}
	if len(audio) == 0 {
		return speech.Transcript{}, speech.ErrNotUnderstood
	}
	ctx, cancel := context.WithTimeout(ctx, config.STTTimeout)
	defer cancel()
	return s.stt.Transcribe(ctx, audio)
}

func (s *Service) runTurn(ctx context.Context, id string, text string, result chatModel.TurnResult) (chatModel.TurnResult, error) {
	ctx, cancel := context.WithTimeout(ctx, config.TurnTimeout)
	defer cancel()

	log := s.logger.WithTrace(ctx).With("sessionId", id)
	start := time.Now()
	metrics.IncrementActiveTurns()
	defer metrics.DecrementActiveTurns()
	status := "error"
	defer func() { metrics.CaptureTurnMetrics(status, time.Since(start)) }()

	result.Step = chatModel.LanguageDetection
	profile := language.DetectProfile(text)
	result.Language = profile.Language.Code()
	log.Debug("turn language", "language", result.Language)

	result.Step = chatModel.RetrievalCall
	answer, err := s.rag.Answer(ctx, text, profile)
	if err != nil {
		log.Error("answer failed", "error", err)
		result.Step = failedStep(err)
		return s.warn(result, result.Step, generationWarning), fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	result.Step = chatModel.TTSCall
	audio, err := s.synthesize(ctx, answer.Text, profile.Voice)
	if err != nil {
		log.Warn("speech synthesis failed, answering with text only", "error", err)
		result = s.warn(result, chatModel.TTSCall, speech.Warning(err))
	}

	now := time.Now().UTC()
	user := chatModel.Message{
		Id:        utils.GetNewUUID(),
		Role:      chatModel.RoleUser,
		Content:   text,
		Language:  result.Language,
		CreatedAt: now,
	}
	assistant := chatModel.Message{
		Id:        utils.GetNewUUID(),
		Role:      chatModel.RoleAssistant,
		Content:   answer.Text,
		Language:  result.Language,
		Audio:     audio,
		CreatedAt: now,
	}

	// audio is played once, the log keeps only text
	stored := assistant
	stored.Audio = nil

	result.Step = chatModel.SessionSave
	if err := s.store.AppendTurn(ctx, id, user, stored); err != nil {
		log.Error("could not save turn", "error", err)
		return result, err
	}

	status = "ok"
	result.Step = chatModel.Complete
	result.User = &user
	result.Assistant = &assistant
	result.Sources = answer.Pages
	result.Compressed = answer.Compressed
	return result, nil
}

func (s *Service) synthesize(ctx context.Context, text string, voice language.Voice) ([]byte, error) {
	if s.tts == nil {
		return nil, speech.ErrUnavailable
	}
	return s.tts.Synthesize(ctx, text, voice)
}

func (s *Service) warn(result chatModel.TurnResult, step chatModel.InternalStatus, message string) chatModel.TurnResult {
	metrics.CaptureTurnWarning(string(step))
	result.Warnings = append(result.Warnings, chatModel.TurnWarning{Step: step, Message: message})
	return result
}

func failedStep(err error) chatModel.InternalStatus {
	var stepErr *rag.StepError
	if errors.As(err, &stepErr) && stepErr.Step == rag.StepGeneration {
		return chatModel.LLMCall
	}
	return chatModel.RetrievalCall
}

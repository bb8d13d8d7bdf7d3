package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/data/redisStore"
	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

type RedisSessionStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
	ttl    time.Duration
}

// sessionMeta is everything but the log, kept under its own key.
type sessionMeta struct {
	State     chatModel.SessionState `json:"state"`
	CreatedAt time.Time              `json:"created_at"`
}

// GetRedisSessionStore returns nil when redis is offline.
func GetRedisSessionStore(ctx context.Context, secrets config.Secrets) *RedisSessionStore {
	s := redisStore.GetRedisStore(ctx, redisStore.Options{
		Addr:     secrets.RedisAddr,
		Password: secrets.RedisPassword,
		DB:       config.RedisSessionStore,
	})
	if s == nil {
		return nil
	}
	return newRedisSessionStore(s)
}

func TestSessionStore(s *redisStore.Store) *RedisSessionStore {
	return newRedisSessionStore(s)
}

func newRedisSessionStore(s *redisStore.Store) *RedisSessionStore {
	return &RedisSessionStore{
		store:  s,
		logger: logger_i.NewLogger("SessionStore"),
		ttl:    config.RedisSessionStoreTTL,
	}
}

// Ping reports whether redis still answers.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func messagesKey(id string) string { return "session:" + id + ":messages" }
func metaKey(id string) string     { return "session:" + id + ":meta" }

// Get treats meta without a log as corrupt, every session starts with one message.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (chatModel.Session, bool, error) {
	raw, err := s.store.Get(ctx, metaKey(id))
	if s.store.IsNil(err) {
		return chatModel.Session{}, false, nil
	} else if err != nil {
		return chatModel.Session{}, false, fmt.Errorf("reading session meta: %w", err)
	}
	var meta sessionMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return chatModel.Session{}, false, fmt.Errorf("%w: meta: %v", chatModel.ErrSessionCorrupt, err)
	}

	items, err := s.store.ListGetAll(ctx, messagesKey(id))
	if err != nil {
		return chatModel.Session{}, false, fmt.Errorf("reading session log: %w", err)
	}
	if len(items) == 0 {
		return chatModel.Session{}, false, fmt.Errorf("%w: log missing", chatModel.ErrSessionCorrupt)
	}
	messages := make([]chatModel.Message, 0, len(items))
	for _, item := range items {
		var m chatModel.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return chatModel.Session{}, false, fmt.Errorf("%w: message: %v", chatModel.ErrSessionCorrupt, err)
		}
		messages = append(messages, m)
	}

	return chatModel.Session{
		Id:        id,
		Messages:  messages,
		State:     meta.State,
		CreatedAt: meta.CreatedAt,
	}, true, nil
}

func (s *RedisSessionStore) Create(ctx context.Context, id string, welcome chatModel.Message) (chatModel.Session, error) {
	session := chatModel.Session{
		Id:        id,
		Messages:  []chatModel.Message{welcome},
		State:     chatModel.StateIdle,
		CreatedAt: time.Now().UTC(),
	}
	meta, err := json.Marshal(sessionMeta{State: session.State, CreatedAt: session.CreatedAt})
	if err != nil {
		return chatModel.Session{}, err
	}
	first, err := json.Marshal(welcome)
	if err != nil {
		return chatModel.Session{}, err
	}

	err = s.store.CreateList(ctx, messagesKey(id), metaKey(id), meta, s.ttl, first)
	if errors.Is(err, redisStore.ErrKeyExists) {
		return chatModel.Session{}, chatModel.ErrSessionExists
	} else if err != nil {
		return chatModel.Session{}, fmt.Errorf("creating session: %w", err)
	}
	s.logger.WithTrace(ctx).Debug("created session", "sessionId", id)
	return session, nil
}

func (s *RedisSessionStore) AppendTurn(ctx context.Context, id string, user chatModel.Message, assistant chatModel.Message) error {
	exists, err := s.store.Exists(ctx, metaKey(id))
	if err != nil {
		return err
	}
	if !exists {
		return chatModel.ErrSessionNotFound
	}

	u, err := json.Marshal(user)
	if err != nil {
		return err
	}
	a, err := json.Marshal(assistant)
	if err != nil {
		return err
	}
	if err := s.store.ListAppend(ctx, messagesKey(id), s.ttl, []string{metaKey(id)}, u, a); err != nil {
		s.logger.WithTrace(ctx).Error("error saving turn", "sessionId", id, "error", err)
		return err
	}
	return nil
}

func (s *RedisSessionStore) SetState(ctx context.Context, id string, state chatModel.SessionState) error {
	raw, err := s.store.Get(ctx, metaKey(id))
	if s.store.IsNil(err) {
		return chatModel.ErrSessionNotFound
	} else if err != nil {
		return err
	}
	var meta sessionMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return err
	}
	meta.State = state
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.store.SetTouch(ctx, metaKey(id), data, s.ttl, messagesKey(id))
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.store.Del(ctx, metaKey(id), messagesKey(id))
}

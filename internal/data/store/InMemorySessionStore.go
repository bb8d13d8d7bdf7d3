package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
	"github.com/akolanti/CSDAssistant/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem SessionStore")

type inMemSession struct {
	session   chatModel.Session
	expiresAt time.Time
}

// InMemorySessionStore expires sessions like redis does: every write pushes
// the deadline out by ttl, expired entries are swept on Create.
type InMemorySessionStore struct {
	sessionLock *sync.RWMutex
	sessionMap  map[string]*inMemSession
	ttl         time.Duration
	now         func() time.Time
	nextSweep   time.Time
}

func InitInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessionLock: new(sync.RWMutex),
		sessionMap:  make(map[string]*inMemSession),
		ttl:         config.SessionTTL,
		now:         time.Now,
	}
}

func (store *InMemorySessionStore) Get(ctx context.Context, id string) (chatModel.Session, bool, error) {
	store.sessionLock.RLock()
	defer store.sessionLock.RUnlock()
	s, found := store.sessionMap[id]
	if !found || store.expired(s) {
		return chatModel.Session{}, false, nil
	}
	return copySession(&s.session), true, nil
}

func (store *InMemorySessionStore) Create(ctx context.Context, id string, welcome chatModel.Message) (chatModel.Session, error) {
	store.sessionLock.Lock()
	defer store.sessionLock.Unlock()
	store.sweep()

	if s, found := store.sessionMap[id]; found && !store.expired(s) {
		return chatModel.Session{}, chatModel.ErrSessionExists
	}
	s := &inMemSession{
		session: chatModel.Session{
			Id:        id,
			Messages:  []chatModel.Message{welcome},
			State:     chatModel.StateIdle,
			CreatedAt: store.now(),
		},
		expiresAt: store.now().Add(store.ttl),
	}
	store.sessionMap[id] = s
	inMemLogger.Debug("created session", "sessionId", id)
	return copySession(&s.session), nil
}

func (store *InMemorySessionStore) AppendTurn(ctx context.Context, id string, user chatModel.Message, assistant chatModel.Message) error {
	store.sessionLock.Lock()
	defer store.sessionLock.Unlock()
	s, found := store.sessionMap[id]
	if !found || store.expired(s) {
		return chatModel.ErrSessionNotFound
	}
	s.session.Messages = append(s.session.Messages, user, assistant)
	s.expiresAt = store.now().Add(store.ttl)
	return nil
}

func (store *InMemorySessionStore) SetState(ctx context.Context, id string, state chatModel.SessionState) error {
	store.sessionLock.Lock()
	defer store.sessionLock.Unlock()
	s, found := store.sessionMap[id]
	if !found || store.expired(s) {
		return chatModel.ErrSessionNotFound
	}
	s.session.State = state
	s.expiresAt = store.now().Add(store.ttl)
	return nil
}

func (store *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	store.sessionLock.Lock()
	defer store.sessionLock.Unlock()
	delete(store.sessionMap, id)
	return nil
}

func (store *InMemorySessionStore) expired(s *inMemSession) bool {
	return !store.now().Before(s.expiresAt)
}

// sweep runs at most once per SessionSweepInterval; callers hold the write lock.
func (store *InMemorySessionStore) sweep() {
	now := store.now()
	if now.Before(store.nextSweep) {
		return
	}
	store.nextSweep = now.Add(config.SessionSweepInterval)
	removed := 0
	for id, s := range store.sessionMap {
		if store.expired(s) {
			delete(store.sessionMap, id)
			removed++
		}
	}
	if removed > 0 {
		inMemLogger.Debug("expired sessions removed", "count", removed)
	}
}

// callers never share the backing array of the log
func copySession(s *chatModel.Session) chatModel.Session {
	out := *s
	out.Messages = append([]chatModel.Message(nil), s.Messages...)
	return out
}

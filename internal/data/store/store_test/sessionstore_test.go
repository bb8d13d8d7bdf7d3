package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/CSDAssistant/internal/config"
	"github.com/akolanti/CSDAssistant/internal/data/redisStore"
	"github.com/akolanti/CSDAssistant/internal/data/store"
	"github.com/akolanti/CSDAssistant/internal/domain/chatModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func stores(t *testing.T) (map[string]chatModel.SessionStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]chatModel.SessionStore{
		"redis":    store.TestSessionStore(redisStore.NewTestStore(client)),
		"inMemory": store.InitInMemorySessionStore(),
	}, mr
}

func msg(role chatModel.Role, content string) chatModel.Message {
	return chatModel.Message{Id: content, Role: role, Content: content, CreatedAt: time.Now().UTC()}
}

func TestSessionStore_Lifecycle(t *testing.T) {
	all, _ := stores(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")

	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			if _, found, err := s.Get(ctx, "ghost"); found || err != nil {
				t.Error("Expected found=false and no error for unknown session")
			}

			created, err := s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "¡Hola!"))
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if created.State != chatModel.StateIdle || len(created.Messages) != 1 {
				t.Errorf("Unexpected new session: %+v", created)
			}

			if err := s.AppendTurn(ctx, "s1", msg(chatModel.RoleUser, "q1"), msg(chatModel.RoleAssistant, "a1")); err != nil {
				t.Fatalf("AppendTurn failed: %v", err)
			}
			if err := s.AppendTurn(ctx, "s1", msg(chatModel.RoleUser, "q2"), msg(chatModel.RoleAssistant, "a2")); err != nil {
				t.Fatalf("AppendTurn failed: %v", err)
			}
			if err := s.SetState(ctx, "s1", chatModel.StateRecording); err != nil {
				t.Fatalf("SetState failed: %v", err)
			}

			got, found, err := s.Get(ctx, "s1")
			if err != nil || !found {
				t.Fatalf("Session was saved but not found: %v", err)
			}
			want := []string{"¡Hola!", "q1", "a1", "q2", "a2"}
			if len(got.Messages) != len(want) {
				t.Fatalf("Expected %d messages, got %d", len(want), len(got.Messages))
			}
			for i, m := range got.Messages {
				if m.Content != want[i] {
					t.Errorf("message %d: got %s, want %s", i, m.Content, want[i])
				}
			}
			if got.Messages[1].Role != chatModel.RoleUser || got.Messages[2].Role != chatModel.RoleAssistant {
				t.Error("Roles out of order")
			}
			if got.State != chatModel.StateRecording {
				t.Errorf("State got %s", got.State)
			}
		})
	}
}

func TestSessionStore_UnknownSession(t *testing.T) {
	all, _ := stores(t)
	ctx := context.Background()
	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			err := s.AppendTurn(ctx, "ghost", msg(chatModel.RoleUser, "q"), msg(chatModel.RoleAssistant, "a"))
			if !errors.Is(err, chatModel.ErrSessionNotFound) {
				t.Errorf("AppendTurn got %v", err)
			}
			if err := s.SetState(ctx, "ghost", chatModel.StateIdle); !errors.Is(err, chatModel.ErrSessionNotFound) {
				t.Errorf("SetState got %v", err)
			}
		})
	}
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	s := store.InitInMemorySessionStore()
	ctx := context.Background()
	_, _ = s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "hola"))

	got, _, _ := s.Get(ctx, "s1")
	got.Messages[0].Content = "changed"

	again, _, _ := s.Get(ctx, "s1")
	if again.Messages[0].Content != "hola" {
		t.Error("Get leaked the stored log")
	}
}

func TestRedisSessionStore_TTL(t *testing.T) {
	all, mr := stores(t)
	s := all["redis"]
	ctx := context.Background()

	_, _ = s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "hola"))
	_ = s.AppendTurn(ctx, "s1", msg(chatModel.RoleUser, "q"), msg(chatModel.RoleAssistant, "a"))

	if ttl := mr.TTL("session:s1:messages"); ttl != config.RedisSessionStoreTTL {
		t.Errorf("messages ttl got %v", ttl)
	}
	mr.FastForward(config.RedisSessionStoreTTL + time.Second)
	if _, found, _ := s.Get(ctx, "s1"); found {
		t.Error("Expected session to expire")
	}
}

func TestSessionStore_ConcurrentAppends(t *testing.T) {
	all, _ := stores(t)
	ctx := context.Background()

	const workers = 20
	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			_, _ = s.Create(ctx, "race", msg(chatModel.RoleAssistant, "hola"))
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = s.AppendTurn(ctx, "race", msg(chatModel.RoleUser, "q"), msg(chatModel.RoleAssistant, "a"))
				}()
			}
			wg.Wait()

			got, _, _ := s.Get(ctx, "race")
			if len(got.Messages) != 1+2*workers {
				t.Fatalf("Expected %d messages, got %d", 1+2*workers, len(got.Messages))
			}
			for i := 1; i < len(got.Messages); i += 2 {
				if got.Messages[i].Role != chatModel.RoleUser || got.Messages[i+1].Role != chatModel.RoleAssistant {
					t.Fatalf("pair at %d interleaved", i)
				}
			}
		})
	}
}

func TestSessionStore_CreateKeepsExistingLog(t *testing.T) {
	all, _ := stores(t)
	ctx := context.Background()
	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			_, _ = s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "hola"))
			_ = s.AppendTurn(ctx, "s1", msg(chatModel.RoleUser, "q"), msg(chatModel.RoleAssistant, "a"))

			if _, err := s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "otra vez")); !errors.Is(err, chatModel.ErrSessionExists) {
				t.Errorf("Create got %v, want ErrSessionExists", err)
			}
			got, _, _ := s.Get(ctx, "s1")
			if len(got.Messages) != 3 || got.Messages[0].Content != "hola" {
				t.Errorf("Create replaced the log: %+v", got.Messages)
			}
		})
	}
}

// failOnce fails the next command named cmd, the way a dropped connection would.
type failOnce struct {
	cmd  string
	fail atomic.Bool
}

func (h *failOnce) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *failOnce) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == h.cmd && h.fail.CompareAndSwap(true, false) {
			err := errors.New("i/o timeout")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (h *failOnce) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisSessionStore_ReadErrorIsNotMissing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	hook := &failOnce{cmd: "lrange"}
	client.AddHook(hook)
	s := store.TestSessionStore(redisStore.NewTestStore(client))
	ctx := context.Background()

	_, _ = s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "hola"))
	_ = s.AppendTurn(ctx, "s1", msg(chatModel.RoleUser, "q"), msg(chatModel.RoleAssistant, "a"))

	hook.fail.Store(true)
	if _, found, err := s.Get(ctx, "s1"); err == nil || found {
		t.Fatalf("Get got found=%v err=%v, want a read error", found, err)
	}

	got, found, err := s.Get(ctx, "s1")
	if err != nil || !found || len(got.Messages) != 3 {
		t.Errorf("Log lost after a transient error: found=%v err=%v messages=%d", found, err, len(got.Messages))
	}
}

func TestRedisSessionStore_SetStateRefreshesLog(t *testing.T) {
	all, mr := stores(t)
	s := all["redis"]
	ctx := context.Background()

	_, _ = s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "hola"))
	mr.FastForward(23 * time.Hour)
	if err := s.SetState(ctx, "s1", chatModel.StateRecording); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if err := s.SetState(ctx, "s1", chatModel.StateIdle); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	got, found, err := s.Get(ctx, "s1")
	if err != nil || !found {
		t.Fatalf("Get got found=%v err=%v", found, err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hola" {
		t.Errorf("Expected the welcome to survive, got %+v", got.Messages)
	}
}

func TestRedisSessionStore_MetaWithoutLogIsCorrupt(t *testing.T) {
	all, mr := stores(t)
	s := all["redis"]
	ctx := context.Background()

	_, _ = s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "hola"))
	mr.Del("session:s1:messages")

	if _, _, err := s.Get(ctx, "s1"); !errors.Is(err, chatModel.ErrSessionCorrupt) {
		t.Errorf("Get got %v, want ErrSessionCorrupt", err)
	}
}

func TestSessionStore_DeleteAllowsCreate(t *testing.T) {
	all, _ := stores(t)
	ctx := context.Background()
	for name, s := range all {
		t.Run(name, func(t *testing.T) {
			_, _ = s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "hola"))
			_ = s.AppendTurn(ctx, "s1", msg(chatModel.RoleUser, "q"), msg(chatModel.RoleAssistant, "a"))

			if err := s.Delete(ctx, "s1"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, found, err := s.Get(ctx, "s1"); found || err != nil {
				t.Errorf("Get after Delete got found=%v err=%v", found, err)
			}
			if _, err := s.Create(ctx, "s1", msg(chatModel.RoleAssistant, "de nuevo")); err != nil {
				t.Errorf("Create after Delete failed: %v", err)
			}
			if err := s.Delete(ctx, "missing"); err != nil {
				t.Errorf("Delete of a missing session got %v", err)
			}
		})
	}
}

package redisStore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestGetRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s := GetRedisStore(ctx, Options{Addr: mr.Addr(), DB: 5})
	if s == nil {
		t.Fatal("Expected a store for a reachable redis")
	}
	if again := GetRedisStore(ctx, Options{Addr: mr.Addr(), DB: 5}); again != s {
		t.Error("Expected one store per database")
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	mr.Close()
	if err := s.Ping(ctx); err == nil {
		t.Error("Expected ping to fail once redis is gone")
	}
}

func TestGetRedisStore_Offline(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if s := GetRedisStore(context.Background(), Options{Addr: addr, DB: 6}); s != nil {
		t.Error("Expected nil store when redis is offline")
	}
}

func TestListAppend_Atomic(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s := GetRedisStore(ctx, Options{Addr: mr.Addr(), DB: 7})
	if s == nil {
		t.Fatal("store unavailable")
	}

	if err := s.CreateList(ctx, "log", "meta", []byte("{}"), time.Hour, "welcome"); err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if err := s.ListAppend(ctx, "log", time.Hour, []string{"meta"}, "user", "assistant"); err != nil {
		t.Fatalf("ListAppend failed: %v", err)
	}
	got, err := s.ListGetAll(ctx, "log")
	if err != nil {
		t.Fatalf("ListGetAll failed: %v", err)
	}
	want := []string{"welcome", "user", "assistant"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCreateList_ExistingMeta(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s := GetRedisStore(ctx, Options{Addr: mr.Addr(), DB: 8})
	if s == nil {
		t.Fatal("store unavailable")
	}

	if err := s.CreateList(ctx, "log", "meta", "first", time.Hour, "welcome"); err != nil {
		t.Fatalf("CreateList failed: %v", err)
	}
	if err := s.CreateList(ctx, "log", "meta", "second", time.Hour, "again"); !errors.Is(err, ErrKeyExists) {
		t.Errorf("CreateList got %v, want ErrKeyExists", err)
	}
	got, _ := s.ListGetAll(ctx, "log")
	if len(got) != 1 || got[0] != "welcome" {
		t.Errorf("Existing list was touched: %v", got)
	}
	if meta, _ := s.Get(ctx, "meta"); meta != "first" {
		t.Errorf("meta got %s", meta)
	}
}

func TestSetTouch(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	s := GetRedisStore(ctx, Options{Addr: mr.Addr(), DB: 9})
	if s == nil {
		t.Fatal("store unavailable")
	}

	_ = s.CreateList(ctx, "log", "meta", "v1", time.Hour, "welcome")
	mr.FastForward(50 * time.Minute)
	if err := s.SetTouch(ctx, "meta", "v2", time.Hour, "log"); err != nil {
		t.Fatalf("SetTouch failed: %v", err)
	}
	if ttl := mr.DB(9).TTL("log"); ttl != time.Hour {
		t.Errorf("log ttl got %v, want %v", ttl, time.Hour)
	}
}

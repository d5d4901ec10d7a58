package store_test

import (
	"path/filepath"
	"testing"

	"cosigner/internal/store"
)

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keystore")

	s, err := store.OpenBadgerStore(dir, "pass", cheap)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, err := s.GetOrCreateDeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if err := s.Put("keyshare:k", "share"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = store.OpenBadgerStore(dir, "pass", cheap)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	again, err := s.GetOrCreateDeviceID()
	if err != nil {
		t.Fatalf("device id after reopen: %v", err)
	}
	if again != id {
		t.Fatalf("device id changed: %s -> %s", id, again)
	}
	got, ok, err := s.Get("keyshare:k")
	if err != nil || !ok || got != "share" {
		t.Fatalf("get: %q ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := s.Get("missing"); ok {
		t.Fatal("expected missing key")
	}
}

func TestBadgerStore_WrongPassphrase_Fails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keystore")

	s, err := store.OpenBadgerStore(dir, "correct", cheap)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put("k", "v"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if s, err := store.OpenBadgerStore(dir, "wrong", cheap); err == nil {
		s.Close()
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestOpen_BadgerBackend(t *testing.T) {
	s, err := store.Open(store.BackendBadger, t.TempDir(), "pass", cheap)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := s.GetOrCreateDeviceID(); err != nil {
		t.Fatalf("device id: %v", err)
	}
}

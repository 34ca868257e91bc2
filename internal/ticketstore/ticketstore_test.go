package ticketstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemorySaveLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4, time.Hour)

	state := []byte("state")
	if err := m.Save(ctx, []byte("id"), state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	state[0] = 'X'

	got, err := m.Load(ctx, []byte("id"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "state" {
		t.Errorf("Load() = %q, want state", got)
	}

	if _, err := m.Load(ctx, []byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3, time.Hour)

	for i := 0; i < 5; i++ {
		if err := m.Save(ctx, []byte(fmt.Sprint(i)), []byte{byte(i)}); err != nil {
			t.Fatalf("Save(%d) error = %v", i, err)
		}
	}
	if got := m.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	tests := []struct {
		id   string
		want bool
	}{
		{"0", false},
		{"1", false},
		{"2", true},
		{"3", true},
		{"4", true},
	}
	for _, tt := range tests {
		_, err := m.Load(ctx, []byte(tt.id))
		if got := err == nil; got != tt.want {
			t.Errorf("Load(%s) present = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestMemoryOverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Hour)

	_ = m.Save(ctx, []byte("a"), []byte("1"))
	_ = m.Save(ctx, []byte("b"), []byte("1"))
	_ = m.Save(ctx, []byte("a"), []byte("2"))

	if got := m.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	got, err := m.Load(ctx, []byte("a"))
	if err != nil || string(got) != "2" {
		t.Errorf("Load(a) = %q, %v; want 2, nil", got, err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_ = m.Save(ctx, []byte("id"), []byte("state"))

	now = now.Add(59 * time.Second)
	if _, err := m.Load(ctx, []byte("id")); err != nil {
		t.Fatalf("Load() before expiry error = %v", err)
	}

	now = now.Add(time.Second)
	if _, err := m.Load(ctx, []byte("id")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after expiry error = %v, want ErrNotFound", err)
	}
	if got := m.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestMemoryClose(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, 0)
	_ = m.Close()

	if err := m.Save(ctx, []byte("id"), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Save() error = %v, want ErrClosed", err)
	}
	if _, err := m.Load(ctx, []byte("id")); !errors.Is(err, ErrClosed) {
		t.Errorf("Load() error = %v, want ErrClosed", err)
	}
}

func TestBadgerRequiresPassphrase(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{Dir: t.TempDir()})
	if !errors.Is(err, ErrPassphraseRequired) {
		t.Errorf("OpenBadger() error = %v, want ErrPassphraseRequired", err)
	}
}

func TestBadgerInMemory(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBadger(BadgerConfig{InMemory: true, Passphrase: []byte("secret")})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer b.Close()

	if err := b.Save(ctx, []byte("id"), []byte("state")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := b.Load(ctx, []byte("id"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "state" {
		t.Errorf("Load() = %q, want state", got)
	}
	if _, err := b.Load(ctx, []byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestBadgerPersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sessions")
	pass := []byte("correct horse")

	b, err := OpenBadger(BadgerConfig{Dir: dir, Passphrase: pass})
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	if err := b.Save(ctx, []byte("id"), []byte("state")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := os.Stat(dir + ".salt"); err != nil {
		t.Fatalf("salt file missing: %v", err)
	}

	if _, err := OpenBadger(BadgerConfig{Dir: dir, Passphrase: []byte("wrong")}); err == nil {
		t.Fatal("OpenBadger() with the wrong passphrase succeeded")
	}

	b, err = OpenBadger(BadgerConfig{Dir: dir, Passphrase: pass})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer b.Close()

	got, err := b.Load(ctx, []byte("id"))
	if err != nil {
		t.Fatalf("Load() after reopen error = %v", err)
	}
	if string(got) != "state" {
		t.Errorf("Load() = %q, want state", got)
	}
}

func TestLoadOrCreateSaltRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.salt")
	if err := os.WriteFile(path, []byte("short"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadOrCreateSalt(path); err == nil {
		t.Error("loadOrCreateSalt() accepted a corrupt salt file")
	}
}

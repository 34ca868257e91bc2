package ticketstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"github.com/muurk/tlsprobe/internal/logging"
)

const (
	saltLength = 16

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32

	keyPrefix  = "ticket/"
	gcInterval = 10 * time.Minute
)

// ErrPassphraseRequired is returned when a Badger store is opened without a
// passphrase.
var ErrPassphraseRequired = errors.New("ticketstore: passphrase required")

// BadgerConfig configures an on-disk store.
type BadgerConfig struct {
	// Dir is the database directory. The salt is stored in Dir + ".salt".
	Dir        string
	Passphrase []byte
	// Lifetime is the TTL of each session. Zero selects DefaultLifetime.
	Lifetime time.Duration
	// InMemory runs Badger without touching Dir. Used by tests.
	InMemory bool
}

// Badger is an encrypted, persistent session store.
type Badger struct {
	db       *badger.DB
	lifetime time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// OpenBadger opens (or creates) the store described by cfg. A wrong
// passphrase fails here rather than on first use.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if len(cfg.Passphrase) == 0 {
		return nil, ErrPassphraseRequired
	}
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("ticketstore: dir is required")
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}

	var salt []byte
	var err error
	if cfg.InMemory {
		salt = make([]byte, saltLength)
		_, err = rand.Read(salt)
	} else {
		salt, err = loadOrCreateSalt(filepath.Clean(cfg.Dir) + ".salt")
	}
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logging.GetLogger().Named("badger")}
	opts.EncryptionKey = argon2.IDKey(cfg.Passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	opts.EncryptionKeyRotationDuration = 30 * 24 * time.Hour
	opts.IndexCacheSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ticketstore: open %s: %w", cfg.Dir, err)
	}

	b := &Badger{
		db:       db,
		lifetime: cfg.Lifetime,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go b.gcLoop()

	logging.Info("Session store opened",
		zap.String("dir", cfg.Dir),
		zap.Duration("lifetime", cfg.Lifetime),
	)
	return b, nil
}

// loadOrCreateSalt reads the salt file, creating it on first use.
func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != saltLength {
			return nil, fmt.Errorf("ticketstore: salt file %s is corrupt", path)
		}
		return salt, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("ticketstore: read salt: %w", err)
	}

	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("ticketstore: generate salt: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ticketstore: create dir: %w", err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("ticketstore: write salt: %w", err)
	}
	return salt, nil
}

func storageKey(id []byte) []byte {
	return append([]byte(keyPrefix), id...)
}

// Save stores state under id with the configured TTL.
func (b *Badger) Save(_ context.Context, id, state []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(storageKey(id), state).WithTTL(b.lifetime)
		return txn.SetEntry(e)
	})
}

// Load returns the state stored under id.
func (b *Badger) Load(_ context.Context, id []byte) ([]byte, error) {
	var state []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		state, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, ErrClosed
	}
	return state, err
}

// Close stops garbage collection and closes the database.
func (b *Badger) Close() error {
	err := ErrClosed
	b.stopOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
		err = b.db.Close()
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// gcLoop reclaims value log space left behind by expired sessions.
func (b *Badger) gcLoop() {
	defer close(b.doneCh)

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			for b.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

// badgerLogger adapts zap to Badger's Logger interface.
type badgerLogger struct {
	logger *zap.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

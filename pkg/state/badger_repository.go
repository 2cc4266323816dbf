package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"brainstorm-be/internal/pkg/logger"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "brainstorm:"

type BadgerConfig struct {
	Path           string
	InMemory       bool
	SyncWrites     bool
	GCInterval     time.Duration
	GCDiscardRatio float64
}

func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// BadgerRepository stores brainstorm records in a local Badger database so
// they survive restarts on the same machine.
type BadgerRepository struct {
	db     *badger.DB
	stopGC chan struct{}
	doneGC chan struct{}
	logger logger.ILogger
}

func OpenBadgerRepository(cfg BadgerConfig, log logger.ILogger) (*BadgerRepository, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for persistent storage")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create state directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	r := &BadgerRepository{db: db, logger: log}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		r.stopGC = make(chan struct{})
		r.doneGC = make(chan struct{})
		go r.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return r, nil
}

func (r *BadgerRepository) Load(ctx context.Context, id string) (*BrainstormSession, error) {
	var s *BrainstormSession
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			s = &BrainstormSession{}
			return json.Unmarshal(val, s)
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *BadgerRepository) Save(ctx context.Context, s *BrainstormSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	key := []byte(keyPrefix + s.ID)
	err = r.db.Update(func(txn *badger.Txn) error {
		var stored []byte
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if stored, err = item.ValueCopy(nil); err != nil {
				return err
			}
		}
		if err := checkVersion(stored, s.Version); err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrVersionConflict
	}
	return err
}

func (r *BadgerRepository) Delete(ctx context.Context, id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + id))
	})
}

func (r *BadgerRepository) Close() error {
	if r.stopGC != nil {
		close(r.stopGC)
		<-r.doneGC
	}
	return r.db.Close()
}

func (r *BadgerRepository) runGC(interval time.Duration, ratio float64) {
	defer close(r.doneGC)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopGC:
			return
		case <-ticker.C:
			if err := r.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				r.logger.Warn("StateBadger", "Value log GC failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

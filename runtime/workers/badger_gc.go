package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// BadgerGCWorker reclaims value log space left behind by expired sessions and
// deleted channels. Badger never runs value log GC on its own.
type BadgerGCWorker struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerGCWorker(db *badger.DB, log *slog.Logger) *BadgerGCWorker {
	return &BadgerGCWorker{db: db, log: log}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// ErrNoRewrite simply means there was nothing worth compacting.
			err := w.db.RunValueLogGC(gcDiscardRatio)
			switch err {
			case nil:
				w.log.Debug("Badger value log GC reclaimed space")
			case badger.ErrNoRewrite:
			default:
				w.log.Warn("Badger value log GC failed", "error", err)
			}
		}
	}
}

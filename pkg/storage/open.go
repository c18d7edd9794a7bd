package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gowgit/site-crawler/pkg/config"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// Open connects to the backend selected by cfg.Driver. cfg is expected to be validated.
// For badger a GC goroutine is started that lives until ctx is cancelled.
func Open(ctx context.Context, cfg config.StorageConfig, log *logrus.Entry) (Store, error) {
	storeLog := log.WithFields(logrus.Fields{"component": "storage", "driver": cfg.Driver})
	switch cfg.Driver {
	case "badger", "":
		store, err := NewBadgerStore(cfg.Path, storeLog)
		if err != nil {
			return nil, err
		}
		go store.RunGC(ctx, cfg.GCInterval)
		return store, nil
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.Path, storeLog)
	case "mongo":
		return NewMongoStore(ctx, cfg.URI, cfg.Database, storeLog)
	}
	return nil, fmt.Errorf("%w: unknown storage driver '%s'", utils.ErrConfigValidation, cfg.Driver)
}

package backend

import (
	"fmt"
	"io"

	"github.com/jgoldverg/splitfile/backend/leveldbstore"
	"github.com/jgoldverg/splitfile/backend/localfs"
	"github.com/jgoldverg/splitfile/backend/objectstore"
	"github.com/jgoldverg/splitfile/backend/s3store"
	"github.com/jgoldverg/splitfile/internal"
	"github.com/jgoldverg/splitfile/pkg/store"
)

type StoreConfig struct {
	Type        BackendType
	LevelDBPath string
	S3          s3store.Config
}

// StoreFromAppConfig picks the store settings out of the application config.
func StoreFromAppConfig(cfg *internal.AppConfig) (StoreConfig, error) {
	bt, err := ParseBackendType(cfg.Backend)
	if err != nil {
		return StoreConfig{}, err
	}
	return StoreConfig{
		Type:        bt,
		LevelDBPath: cfg.LevelDBPath,
		S3: s3store.Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		},
	}, nil
}

// NewStore builds the volume store for cfg. The returned closer releases
// backend resources and must be called once every split file on the store
// is closed.
func NewStore(cfg StoreConfig) (store.Store, io.Closer, error) {
	internal.Debug("opening store", internal.Fields{
		internal.FieldBackend: string(cfg.Type),
	})
	switch cfg.Type {
	case LOCALFSBackend, "":
		return localfs.NewStore(), nopCloser{}, nil
	case MemoryBackend:
		st, _ := objectstore.NewMemoryStore()
		return st, nopCloser{}, nil
	case LevelDBBackend:
		if cfg.LevelDBPath == "" {
			return nil, nil, fmt.Errorf("leveldb backend requires leveldb_path")
		}
		b, err := leveldbstore.Open(cfg.LevelDBPath, nil)
		if err != nil {
			return nil, nil, err
		}
		return b.Store(), b, nil
	case S3Backend:
		b, err := s3store.New(cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return b.Store(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Type)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

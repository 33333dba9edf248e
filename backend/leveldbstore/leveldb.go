// Package leveldbstore keeps volumes as values in a LevelDB database, keyed by
// volume name.
package leveldbstore

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/jgoldverg/splitfile/backend/objectstore"
	"github.com/jgoldverg/splitfile/pkg/store"
)

type Backend struct {
	db *leveldb.DB
	wo *opt.WriteOptions
}

var _ objectstore.Backend = (*Backend)(nil)

// Open opens or creates the database at path.
func Open(path string, o *opt.Options) (*Backend, error) {
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}
	return &Backend{db: db, wo: &opt.WriteOptions{Sync: true}}, nil
}

// OpenStorage opens a database on an arbitrary goleveldb storage, such as
// storage.NewMemStorage().
func OpenStorage(stor storage.Storage, o *opt.Options) (*Backend, error) {
	db, err := leveldb.Open(stor, o)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open storage: %w", err)
	}
	return &Backend{db: db, wo: &opt.WriteOptions{}}, nil
}

// Store wraps the backend into a store.Store.
func (b *Backend) Store() *objectstore.Store {
	return objectstore.New(b)
}

func (b *Backend) Get(name string) ([]byte, error) {
	data, err := b.db.Get([]byte(name), nil)
	if err != nil {
		return nil, mapErr(name, err)
	}
	return data, nil
}

func (b *Backend) Put(name string, data []byte) error {
	if err := b.db.Put([]byte(name), data, b.wo); err != nil {
		return fmt.Errorf("leveldb: put %s: %w", name, err)
	}
	return nil
}

// Size has to read the value; LevelDB keeps no separate length.
func (b *Backend) Size(name string) (int64, error) {
	data, err := b.Get(name)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (b *Backend) Delete(name string) error {
	ok, err := b.db.Has([]byte(name), nil)
	if err != nil {
		return mapErr(name, err)
	}
	if !ok {
		return fmt.Errorf("leveldb: %s: %w", name, store.ErrNotExist)
	}
	if err := b.db.Delete([]byte(name), b.wo); err != nil {
		return fmt.Errorf("leveldb: delete %s: %w", name, err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func mapErr(name string, err error) error {
	if errors.Is(err, leveldb.ErrNotFound) {
		return fmt.Errorf("leveldb: %s: %w", name, store.ErrNotExist)
	}
	return fmt.Errorf("leveldb: %s: %w", name, err)
}

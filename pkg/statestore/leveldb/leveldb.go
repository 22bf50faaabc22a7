// Package leveldb implements storage.StateStorer on top of goleveldb.
package leveldb

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/storage"
	"github.com/syndtr/goleveldb/leveldb"
	ldberr "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	ldbs "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var _ storage.StateStorer = (*store)(nil)

// Options tune the underlying database. Zero values keep goleveldb defaults.
type Options struct {
	OpenFilesLimit         uint64
	BlockCacheCapacity     uint64
	WriteBufferSize        uint64
	DisableSeeksCompaction bool
}

// store uses LevelDB to store values.
type store struct {
	db     *leveldb.DB
	logger logging.Logger
}

// NewInMemoryStateStore creates a state store backed by memory storage.
func NewInMemoryStateStore(l logging.Logger) (storage.StateStorer, error) {
	ldb, err := leveldb.Open(ldbs.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}

	s := &store{
		db:     ldb,
		logger: l,
	}

	if err := migrate(s); err != nil {
		return nil, err
	}

	return s, nil
}

// NewStateStore creates a new persistent state storage.
func NewStateStore(path string, o *Options, l logging.Logger) (storage.StateStorer, error) {
	opts := o.leveldbOptions()
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		if !ldberr.IsCorrupted(err) {
			return nil, err
		}

		l.Warningf("statestore open failed: %v. attempting recovery", err)
		db, err = leveldb.RecoverFile(path, opts)
		if err != nil {
			return nil, fmt.Errorf("statestore recovery: %w", err)
		}
		l.Warning("statestore recovery ok! you are kindly request to inform us about the steps that preceded the last node shutdown.")
	}

	s := &store{
		db:     db,
		logger: l,
	}

	if err := migrate(s); err != nil {
		return nil, err
	}

	return s, nil
}

func (o *Options) leveldbOptions() *opt.Options {
	if o == nil {
		return nil
	}
	return &opt.Options{
		OpenFilesCacheCapacity: int(o.OpenFilesLimit),
		BlockCacheCapacity:     int(o.BlockCacheCapacity),
		WriteBuffer:            int(o.WriteBufferSize),
		DisableSeeksCompaction: o.DisableSeeksCompaction,
	}
}

func migrate(s *store) error {
	sn, err := s.getSchemaName()
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			_ = s.Close()
			return fmt.Errorf("get schema name: %w", err)
		}
		// new statestore - put schema key with current name
		if err := s.putSchemaName(dbSchemaCurrent); err != nil {
			_ = s.Close()
			return fmt.Errorf("put schema name: %w", err)
		}
		sn = dbSchemaCurrent
	}

	if err = s.migrate(sn); err != nil {
		_ = s.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// Get retrieves a value of the requested key. If no results are found,
// storage.ErrNotFound will be returned.
func (s *store) Get(key string, i interface{}) error {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return storage.ErrNotFound
		}
		return err
	}

	if unmarshaler, ok := i.(encoding.BinaryUnmarshaler); ok {
		return unmarshaler.UnmarshalBinary(data)
	}

	return json.Unmarshal(data, i)
}

// Put stores a value for an arbitrary key. BinaryMarshaler
// interface method will be called on the provided value
// with fallback to JSON serialization.
func (s *store) Put(key string, i interface{}) (err error) {
	bytes, err := marshal(i)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), bytes, &opt.WriteOptions{Sync: true})
}

// Delete removes entries stored under a specific key.
func (s *store) Delete(key string) (err error) {
	return s.db.Delete([]byte(key), &opt.WriteOptions{Sync: true})
}

// Iterate entries that match the supplied prefix.
func (s *store) Iterate(prefix string, iterFunc storage.StateIterFunc) (err error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		stop, err := iterFunc(append([]byte(nil), iter.Key()...), append([]byte(nil), iter.Value()...))
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return iter.Error()
}

// NewBatch returns a batch backed by a leveldb.Batch which is written with a
// single synced write on Commit.
func (s *store) NewBatch() storage.StateBatch {
	return &batch{db: s.db, b: new(leveldb.Batch)}
}

func (s *store) getSchemaName() (string, error) {
	name, err := s.db.Get([]byte(dbSchemaKey), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return string(name), nil
}

func (s *store) putSchemaName(val string) error {
	return s.db.Put([]byte(dbSchemaKey), []byte(val), &opt.WriteOptions{Sync: true})
}

// Close releases the resources used by the store.
func (s *store) Close() error {
	return s.db.Close()
}

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key string, i interface{}) error {
	bytes, err := marshal(i)
	if err != nil {
		return err
	}
	b.b.Put([]byte(key), bytes)
	return nil
}

func (b *batch) Delete(key string) error {
	b.b.Delete([]byte(key))
	return nil
}

func (b *batch) Commit() error {
	return b.db.Write(b.b, &opt.WriteOptions{Sync: true})
}

func marshal(i interface{}) ([]byte, error) {
	if marshaler, ok := i.(encoding.BinaryMarshaler); ok {
		return marshaler.MarshalBinary()
	}
	return json.Marshal(i)
}

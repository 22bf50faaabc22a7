// Package mock provides an in-memory storage.StateStorer for tests.
package mock

import (
	"encoding"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/gauss-project/powerpay/pkg/storage"
)

var _ storage.StateStorer = (*store)(nil)

type store struct {
	store map[string][]byte
	mtx   sync.RWMutex
}

// NewStateStore returns an empty in-memory state store.
func NewStateStore() storage.StateStorer {
	return &store{
		store: make(map[string][]byte),
	}
}

func (s *store) Get(key string, i interface{}) (err error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	data, ok := s.store[key]
	if !ok {
		return storage.ErrNotFound
	}

	if unmarshaler, ok := i.(encoding.BinaryUnmarshaler); ok {
		return unmarshaler.UnmarshalBinary(data)
	}

	return json.Unmarshal(data, i)
}

func (s *store) Put(key string, i interface{}) (err error) {
	bytes, err := marshal(i)
	if err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.store[key] = bytes
	return nil
}

func (s *store) Delete(key string) (err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.store, key)
	return nil
}

// Iterate visits matching keys in ascending order, like the leveldb store.
func (s *store) Iterate(prefix string, iterFunc storage.StateIterFunc) (err error) {
	s.mtx.RLock()
	keys := make([]string, 0, len(s.store))
	for k := range s.store {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = s.store[k]
	}
	s.mtx.RUnlock()

	for i, k := range keys {
		stop, err := iterFunc([]byte(k), values[i])
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (s *store) NewBatch() storage.StateBatch {
	return &batch{s: s, ops: make(map[string][]byte)}
}

func (s *store) Close() (err error) {
	return nil
}

type batch struct {
	s   *store
	ops map[string][]byte // nil value marks a delete
}

func (b *batch) Put(key string, i interface{}) error {
	bytes, err := marshal(i)
	if err != nil {
		return err
	}
	b.ops[key] = bytes
	return nil
}

func (b *batch) Delete(key string) error {
	b.ops[key] = nil
	return nil
}

func (b *batch) Commit() error {
	b.s.mtx.Lock()
	defer b.s.mtx.Unlock()

	for k, v := range b.ops {
		if v == nil {
			delete(b.s.store, k)
			continue
		}
		b.s.store[k] = v
	}
	return nil
}

func marshal(i interface{}) ([]byte, error) {
	if marshaler, ok := i.(encoding.BinaryMarshaler); ok {
		return marshaler.MarshalBinary()
	}
	return json.Marshal(i)
}

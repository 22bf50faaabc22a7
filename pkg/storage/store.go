// Package storage defines the key value persistence contract shared by the
// ledger and every other stateful component of the node.
package storage

import (
	"errors"
	"io"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("storage: not found")

// StateIterFunc is called for every entry matched by Iterate. Returning
// stop=true ends the iteration early.
type StateIterFunc func(key, value []byte) (stop bool, err error)

// StateStorer stores values under string keys. Values implementing
// encoding.BinaryMarshaler / encoding.BinaryUnmarshaler are stored in their
// binary form, everything else is JSON encoded.
type StateStorer interface {
	Get(key string, i interface{}) (err error)
	Put(key string, i interface{}) (err error)
	Delete(key string) (err error)
	Iterate(prefix string, iterFunc StateIterFunc) (err error)
	// NewBatch returns a batch whose writes are applied all at once on
	// Commit. Nothing is visible to readers before Commit returns.
	NewBatch() StateBatch
	io.Closer
}

// StateBatch collects writes for an atomic commit.
type StateBatch interface {
	Put(key string, i interface{}) (err error)
	Delete(key string) (err error)
	Commit() (err error)
}

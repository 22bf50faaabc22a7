package node

import (
	"path/filepath"

	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/statestore/leveldb"
	"github.com/gauss-project/powerpay/pkg/storage"
)

// InitStateStore will initialize the stateStore with the given path to the
// data directory. When given an empty directory path, the function will
// instead initialize an in-memory state store that will not be persisted.
func InitStateStore(log logging.Logger, o Options) (storage.StateStorer, error) {
	if o.DataDir == "" {
		log.Warning("using in-mem state store, no node state will be persisted")
		return leveldb.NewInMemoryStateStore(log)
	}
	return leveldb.NewStateStore(filepath.Join(o.DataDir, "statestore"), &leveldb.Options{
		OpenFilesLimit:         o.DBOpenFilesLimit,
		BlockCacheCapacity:     o.DBBlockCacheCapacity,
		WriteBufferSize:        o.DBWriteBufferSize,
		DisableSeeksCompaction: o.DBDisableSeeksCompaction,
	}, log)
}

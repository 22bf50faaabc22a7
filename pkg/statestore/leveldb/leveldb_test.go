package leveldb_test

import (
	"io"
	"testing"

	"github.com/gauss-project/powerpay/pkg/logging"
	"github.com/gauss-project/powerpay/pkg/statestore/leveldb"
	"github.com/gauss-project/powerpay/pkg/statestore/test"
	"github.com/gauss-project/powerpay/pkg/storage"
)

func TestPersistentStateStore(t *testing.T) {
	test.Run(t, func(t *testing.T) storage.StateStorer {
		dir := t.TempDir()

		store, err := leveldb.NewStateStore(dir, nil, logging.New(io.Discard, 0))
		if err != nil {
			t.Fatal(err)
		}

		return store
	})
}

func TestInMemoryStateStore(t *testing.T) {
	test.Run(t, func(t *testing.T) storage.StateStorer {
		store, err := leveldb.NewInMemoryStateStore(logging.New(io.Discard, 0))
		if err != nil {
			t.Fatal(err)
		}

		return store
	})
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	logger := logging.New(io.Discard, 0)

	store, err := leveldb.NewStateStore(dir, &leveldb.Options{OpenFilesLimit: 64}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("channel", []uint64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = leveldb.NewStateStore(dir, nil, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var got []uint64
	if err := store.Get("channel", &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("got %v after reopen", got)
	}
}

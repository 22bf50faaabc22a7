package leveldb

import (
	"io"

	"github.com/gauss-project/powerpay/pkg/logging"
)

var (
	GetMigrations            = getMigrations
	DbSchemaCurrent          = dbSchemaCurrent
	MigrateDropWalletAliases = migrateDropWalletAliases
)

type Migration = migration

func NewMigration(name string) Migration {
	return migration{name: name, fn: func(*store) error { return nil }}
}

func NewTestStore() (*store, error) {
	s, err := NewInMemoryStateStore(logging.New(io.Discard, 0))
	if err != nil {
		return nil, err
	}
	return s.(*store), nil
}

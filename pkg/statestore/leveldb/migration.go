package leveldb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errMissingCurrentSchema = errors.New("could not find current db schema")
	errMissingTargetSchema  = errors.New("could not find target db schema")
)

const (
	dbSchemaKey = "statestore_schema"

	dbSchemaGenesis     = "genesis"
	dbSchemaDropWallets = "drop-wallet-aliases"
)

var dbSchemaCurrent = dbSchemaDropWallets

// migration moves the store from the previous schema to name.
type migration struct {
	name string
	fn   func(s *store) error
}

// schemaMigrations lists every schema in the order it was introduced.
var schemaMigrations = []migration{
	{name: dbSchemaGenesis, fn: func(s *store) error { return nil }},
	{name: dbSchemaDropWallets, fn: migrateDropWalletAliases},
}

func (s *store) migrate(from string) error {
	pending, err := getMigrations(from, dbSchemaCurrent, schemaMigrations, s)
	if err != nil {
		return fmt.Errorf("migrations from schema %s: %w", from, err)
	}
	if len(pending) == 0 {
		return nil
	}

	s.logger.Infof("statestore: migrating from schema %s, %d steps", from, len(pending))
	for _, m := range pending {
		if err := m.fn(s); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if err := s.putSchemaName(m.name); err != nil {
			return err
		}
		s.logger.Infof("statestore: schema is now %s", m.name)
	}
	return nil
}

// getMigrations returns the steps after current up to and including target.
func getMigrations(current, target string, all []migration, s *store) ([]migration, error) {
	if current == target {
		return nil, nil
	}
	from, to := -1, -1
	for i, m := range all {
		switch m.name {
		case current:
			if from != -1 {
				return nil, fmt.Errorf("schema %s listed twice", current)
			}
			from = i
		case target:
			to = i
		}
	}
	if from == -1 {
		return nil, errMissingCurrentSchema
	}
	if to == -1 || to < from {
		return nil, errMissingTargetSchema
	}
	s.logger.Debugf("statestore: schema %s is %d steps behind %s", current, to-from, target)
	return all[from+1 : to+1], nil
}

// migrateDropWalletAliases removes the wallet alias entries written by the
// first releases. Wallets are now addressed by their identity only.
func migrateDropWalletAliases(s *store) error {
	const prefix = "wallet_alias_"

	keys, err := collectKeys(s, prefix)
	if err != nil {
		return err
	}
	return deleteKeys(s, keys)
}

func collectKeys(s *store, prefix string) (keys []string, err error) {
	if err := s.Iterate(prefix, func(k, v []byte) (bool, error) {
		stk := string(k)
		if strings.HasPrefix(stk, prefix) {
			keys = append(keys, stk)
		}
		return false, nil
	}); err != nil {
		return nil, err
	}
	return keys, nil
}

func deleteKeys(s *store, keys []string) error {
	for _, v := range keys {
		err := s.Delete(v)
		if err != nil {
			return fmt.Errorf("error deleting key %s: %w", v, err)
		}
		s.logger.Debugf("deleted key %s", v)
	}
	s.logger.Debugf("deleted keys: %d", len(keys))
	return nil
}

package leveldb_test

import (
	"errors"
	"testing"

	"github.com/gauss-project/powerpay/pkg/statestore/leveldb"
	"github.com/gauss-project/powerpay/pkg/storage"
)

func TestGetMigrations(t *testing.T) {
	s, err := leveldb.NewTestStore()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	all := []leveldb.Migration{
		leveldb.NewMigration("a"),
		leveldb.NewMigration("b"),
		leveldb.NewMigration("c"),
	}

	for _, tc := range []struct {
		name           string
		current        string
		target         string
		wantMigrations int
		wantErr        bool
	}{
		{name: "up to date", current: "c", target: "c"},
		{name: "one behind", current: "b", target: "c", wantMigrations: 1},
		{name: "two behind", current: "a", target: "c", wantMigrations: 2},
		{name: "unknown current", current: "x", target: "c", wantErr: true},
		{name: "unknown target", current: "a", target: "y", wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := leveldb.GetMigrations(tc.current, tc.target, all, s)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tc.wantMigrations {
				t.Fatalf("got %d migrations, want %d", len(got), tc.wantMigrations)
			}
		})
	}
}

func TestCurrentSchemaHasNoMigrations(t *testing.T) {
	s, err := leveldb.NewTestStore()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := leveldb.GetMigrations(leveldb.DbSchemaCurrent, leveldb.DbSchemaCurrent, nil, s)
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestMigrateDropWalletAliases(t *testing.T) {
	s, err := leveldb.NewTestStore()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for _, k := range []string{"wallet_alias_alice", "wallet_alias_bob", "account_1"} {
		if err := s.Put(k, k); err != nil {
			t.Fatal(err)
		}
	}

	if err := leveldb.MigrateDropWalletAliases(s); err != nil {
		t.Fatal(err)
	}

	var v string
	for _, k := range []string{"wallet_alias_alice", "wallet_alias_bob"} {
		if err := s.Get(k, &v); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("get %s: got error %v, want %v", k, err, storage.ErrNotFound)
		}
	}
	if err := s.Get("account_1", &v); err != nil {
		t.Fatal(err)
	}
}

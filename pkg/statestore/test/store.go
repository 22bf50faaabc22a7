// Package test provides a conformance suite every storage.StateStorer
// implementation is expected to pass.
package test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gauss-project/powerpay/pkg/storage"
)

const (
	key1 = "key1" // stores the serialized type
	key2 = "key2" // stores a json array
)

var (
	value1 = &Serializing{value: "value1"}
	value2 = []string{"a", "b", "c"}
)

// Serializing is stored in its binary form.
type Serializing struct {
	value           string
	marshalCalled   bool
	unmarshalCalled bool
}

func (st *Serializing) MarshalBinary() (data []byte, err error) {
	d := []byte(st.value)
	st.marshalCalled = true

	return d, nil
}

func (st *Serializing) UnmarshalBinary(data []byte) (err error) {
	d := string(data)
	st.value = d
	st.unmarshalCalled = true
	return nil
}

type counter uint64

func (c counter) MarshalBinary() ([]byte, error) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(c))
	return b, nil
}

func (c *counter) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("counter: invalid length %d", len(data))
	}
	*c = counter(binary.LittleEndian.Uint64(data))
	return nil
}

// Run executes the suite against stores produced by f.
func Run(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	t.Helper()

	t.Run("persisted", func(t *testing.T) { testPersisted(t, f) })
	t.Run("delete", func(t *testing.T) { testDelete(t, f) })
	t.Run("iterate", func(t *testing.T) { testIterate(t, f) })
	t.Run("batch", func(t *testing.T) { testBatch(t, f) })
	t.Run("batch not committed", func(t *testing.T) { testBatchNotCommitted(t, f) })
}

func testPersisted(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	store := f(t)
	defer store.Close()

	if err := store.Put(key1, value1); err != nil {
		t.Fatal(err)
	}
	if !value1.marshalCalled {
		t.Fatal("binary marshaler not called on value")
	}
	if err := store.Put(key2, value2); err != nil {
		t.Fatal(err)
	}

	v := &Serializing{}
	if err := store.Get(key1, v); err != nil {
		t.Fatal(err)
	}
	if !v.unmarshalCalled {
		t.Fatal("binary unmarshaler not called on value")
	}
	if v.value != value1.value {
		t.Fatalf("got %q, want %q", v.value, value1.value)
	}

	var l []string
	if err := store.Get(key2, &l); err != nil {
		t.Fatal(err)
	}
	if strings.Join(l, ",") != strings.Join(value2, ",") {
		t.Fatalf("got %v, want %v", l, value2)
	}

	if err := store.Get("missing", &l); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
	}
}

func testDelete(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	store := f(t)
	defer store.Close()

	if err := store.Put(key2, value2); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(key2); err != nil {
		t.Fatal(err)
	}
	var l []string
	if err := store.Get(key2, &l); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
	}
}

func testIterate(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	store := f(t)
	defer store.Close()

	for i, k := range []string{"channel_b", "channel_a", "wallet_a", "channel_c"} {
		if err := store.Put(k, counter(i)); err != nil {
			t.Fatal(err)
		}
	}

	var keys []string
	if err := store.Iterate("channel_", func(k, v []byte) (bool, error) {
		keys = append(keys, string(k))
		return false, nil
	}); err != nil {
		t.Fatal(err)
	}
	if got, want := strings.Join(keys, ","), "channel_a,channel_b,channel_c"; got != want {
		t.Fatalf("got keys %q, want %q", got, want)
	}

	var visited int
	if err := store.Iterate("channel_", func(k, v []byte) (bool, error) {
		visited++
		return true, nil
	}); err != nil {
		t.Fatal(err)
	}
	if visited != 1 {
		t.Fatalf("iteration did not stop, visited %d entries", visited)
	}
}

func testBatch(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	store := f(t)
	defer store.Close()

	if err := store.Put("stale", counter(7)); err != nil {
		t.Fatal(err)
	}

	b := store.NewBatch()
	if err := b.Put("first", counter(1)); err != nil {
		t.Fatal(err)
	}
	if err := b.Put("second", counter(2)); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete("stale"); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}

	var c counter
	if err := store.Get("second", &c); err != nil {
		t.Fatal(err)
	}
	if c != 2 {
		t.Fatalf("got %d, want 2", c)
	}
	if err := store.Get("stale", &c); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
	}
}

func testBatchNotCommitted(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	store := f(t)
	defer store.Close()

	b := store.NewBatch()
	if err := b.Put("pending", counter(1)); err != nil {
		t.Fatal(err)
	}

	var c counter
	if err := store.Get("pending", &c); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
	}
}

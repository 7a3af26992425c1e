package store

import (
	"errors"
	"os"
	"testing"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/testutil/cardtest"
	"github.com/danmuck/farectl/internal/testutil/testlog"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	testlog.Start(t)
	s := openStore(t)
	c := cardtest.Purse(t, "1009123456789012", 500)

	id, err := s.Put(c)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !card.Equal(c, got) {
		t.Fatalf("stored card differs")
	}
	if !s.Has(id) {
		t.Fatalf("Has(%s) = false", id)
	}
}

func TestPutIdempotent(t *testing.T) {
	testlog.Start(t)
	s := openStore(t)
	c := cardtest.Purse(t, "1009123456789012", 500)

	first, err := s.Put(c)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := s.Put(c)
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if !first.Equals(second) {
		t.Fatalf("ids differ: %s vs %s", first, second)
	}
	ids, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(ids))
	}
}

func TestGetDetectsTampering(t *testing.T) {
	testlog.Start(t)
	s := openStore(t)
	id, err := s.Put(cardtest.Purse(t, "1009123456789012", 500))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	path := s.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	other, err := s.Put(cardtest.Purse(t, "1009123456789012", 900))
	if err != nil {
		t.Fatalf("put other: %v", err)
	}
	data, err := os.ReadFile(s.pathFor(other))
	if err != nil {
		t.Fatalf("read other: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	if _, err := s.Get(id); !errors.Is(err, ErrCIDMismatch) {
		t.Fatalf("get after tamper = %v, want ErrCIDMismatch", err)
	}
	if _, err := s.Put(cardtest.Purse(t, "1009123456789012", 500)); !errors.Is(err, ErrImmutable) {
		t.Fatalf("put over tampered object = %v, want ErrImmutable", err)
	}
}

func TestGetMissing(t *testing.T) {
	testlog.Start(t)
	s := openStore(t)
	id, err := Sum([]byte("nothing stored"))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if _, err := s.Get(id); !IsNotFound(err) {
		t.Fatalf("get = %v, want ErrNotFound", err)
	}
}

func TestListSorted(t *testing.T) {
	testlog.Start(t)
	s := openStore(t)
	for _, bal := range []int32{1, 2, 3, 4} {
		if _, err := s.Put(cardtest.Purse(t, "1009123456789012", bal)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	ids, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("expected 4 ids, got %d", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1].String() >= ids[i].String() {
			t.Fatalf("list not sorted at %d: %s >= %s", i, ids[i-1], ids[i])
		}
	}
}

func TestParseCID(t *testing.T) {
	testlog.Start(t)
	id, err := Sum([]byte("x"))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	got, err := ParseCID(id.String())
	if err != nil || !got.Equals(id) {
		t.Fatalf("parse = %v, %v", got, err)
	}
	if _, err := ParseCID("not-a-cid"); !errors.Is(err, ErrInvalidCID) {
		t.Fatalf("parse garbage = %v, want ErrInvalidCID", err)
	}
}

func TestPutBytesRejectsGarbage(t *testing.T) {
	testlog.Start(t)
	s := openStore(t)
	if _, err := s.PutBytes([]byte(`{"card_kind":"nope"}`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

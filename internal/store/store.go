// Package store archives card dumps by content id.
//
// Objects are the canonical card encoding, written once and never
// modified. Reads re-hash the bytes and refuse anything that no longer
// matches its id.
package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/danmuck/farectl/internal/card"
	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog/log"
)

// Store is a filesystem-backed dump archive rooted at one directory.
type Store struct {
	root string
}

// Open creates root if needed.
func Open(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("store: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

// Put stores c and returns its id. Storing the same card twice returns
// the same id.
func (s *Store) Put(c *card.Card) (cid.Cid, error) {
	var buf bytes.Buffer
	if err := card.Encode(&buf, c); err != nil {
		return cid.Undef, err
	}
	return s.PutBytes(buf.Bytes())
}

// PutBytes stores an already encoded card. The bytes must decode.
func (s *Store) PutBytes(data []byte) (cid.Cid, error) {
	if _, err := card.Decode(bytes.NewReader(data)); err != nil {
		return cid.Undef, err
	}
	id, err := Sum(data)
	if err != nil {
		return cid.Undef, err
	}

	path := s.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := s.GetBytes(id)
			if rerr != nil || !bytes.Equal(existing, data) {
				return cid.Undef, ErrImmutable
			}
			log.Debug().Str("cid", id.String()).Msg("store.Put exists")
			return id, nil
		}
		return cid.Undef, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	log.Debug().Str("cid", id.String()).Int("bytes", len(data)).Msg("store.Put")
	return id, nil
}

// Get loads and verifies the card stored under id.
func (s *Store) Get(id cid.Cid) (*card.Card, error) {
	data, err := s.GetBytes(id)
	if err != nil {
		return nil, err
	}
	return card.Decode(bytes.NewReader(data))
}

// GetBytes returns the verified canonical encoding stored under id.
func (s *Store) GetBytes(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	b, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	got, err := Sum(b)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, ErrCIDMismatch
	}
	return b, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(s.pathFor(id))
	return err == nil
}

// List returns every stored id in string order. Entries whose names do
// not parse are skipped.
func (s *Store) List() ([]cid.Cid, error) {
	dirs, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var ids []cid.Cid
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.root, d.Name()))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			id, err := ParseCID(e.Name())
			if err != nil {
				log.Trace().Str("name", e.Name()).Msg("store.List skip")
				continue
			}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (s *Store) pathFor(id cid.Cid) string {
	str := id.String()
	if len(str) < 2 {
		return filepath.Join(s.root, str)
	}
	return filepath.Join(s.root, str[len(str)-2:], str)
}

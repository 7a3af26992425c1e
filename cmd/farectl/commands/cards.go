package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/store"
)

// loadCard reads a dump from a file path, or from the archive when ref
// parses as a content id.
func loadCard(ref string) (*card.Card, error) {
	if id, err := store.ParseCID(ref); err == nil {
		st, err := store.Open(cfg.Store.Dir)
		if err != nil {
			return nil, err
		}
		return st.Get(id)
	}
	f, err := os.Open(ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return card.Decode(f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

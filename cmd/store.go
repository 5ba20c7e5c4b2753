package main

import (
	"context"
	"io"

	json "github.com/goccy/go-json"

	"github.com/gjeldshjelp/debt-cli/internal/store"
)

// initStore validates the config for mode and opens the configured store.
func initStore(ctx context.Context, mode string) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

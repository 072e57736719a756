package main

import (
	"context"
	"fmt"
	"os"

	"survey-drafts/internal/config"
	"survey-drafts/internal/db"
	"survey-drafts/internal/drafts"
	"survey-drafts/internal/logger"
)

// draftctl inspects and repairs the draft store offline, with the same
// backend configuration the server uses.
func main() {
	a := &app{open: openFromEnv}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openFromEnv loads the server configuration, applies flag overrides and
// opens the configured backend.
func openFromEnv(ctx context.Context, o storeOverrides, log *logger.Logger) (*drafts.Manager, db.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	kv, closer, err := db.OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	store := drafts.NewStore(kv, cfg.DraftStorageKey, log)
	return drafts.NewManager(store, drafts.NewIdentityResolver(nil, nil), log), closer, nil
}

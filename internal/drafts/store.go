package drafts

import (
	"context"
	"encoding/json"
	"sync"

	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
)

// Store is the dumb list container: every draft of every operator, as one
// JSON array under one fixed key. It does not interpret ids or owners.
type Store struct {
	kv  KeyValueStore
	key string
	log *logger.Logger

	// entries of the last read that are not draft objects; written back
	// untouched so a save never destroys what it cannot interpret
	mu      sync.Mutex
	foreign []json.RawMessage
}

func NewStore(kv KeyValueStore, key string, log *logger.Logger) *Store {
	return &Store{kv: kv, key: key, log: log.With("component", "DraftStore", "key", key)}
}

// Key returns the storage key the list lives under
func (s *Store) Key() string { return s.key }

// ReadAll never fails: a missing key, a backend error or a blob that is
// not a JSON array all read as an empty list. Inside the array each entry
// is decoded on its own; one that is not an object is kept aside and
// written back by the next WriteAll.
func (s *Store) ReadAll(ctx context.Context) []models.Draft {
	entries := s.readEntries(ctx)

	out := make([]models.Draft, 0, len(entries))
	var foreign []json.RawMessage
	seen := make(map[string]struct{}, len(entries))
	dropped := 0
	for i, raw := range entries {
		var d models.Draft
		if err := json.Unmarshal(raw, &d); err != nil {
			s.log.Warn("keeping undecodable draft entry as is", "index", i, "error", err)
			foreign = append(foreign, raw)
			continue
		}
		// Entries without an id cannot be addressed; duplicates keep the first.
		if d.ID == "" {
			dropped++
			continue
		}
		if _, dup := seen[d.ID]; dup {
			dropped++
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	if dropped > 0 {
		s.log.Warn("dropped unaddressable draft entries", "count", dropped)
	}

	s.mu.Lock()
	s.foreign = foreign
	s.mu.Unlock()
	return out
}

func (s *Store) readEntries(ctx context.Context) []json.RawMessage {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.Warn("draft store read failed, using empty list", "error", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Warn("draft store is corrupt, using empty list", "error", err, "bytes", len(raw))
		return nil
	}
	return entries
}

// WriteAll replaces the stored list. Failures come back as *PersistError.
func (s *Store) WriteAll(ctx context.Context, drafts []models.Draft) error {
	s.mu.Lock()
	foreign := s.foreign
	s.mu.Unlock()

	entries := make([]json.RawMessage, 0, len(drafts)+len(foreign))
	for i := range drafts {
		b, err := json.Marshal(&drafts[i])
		if err != nil {
			return &PersistError{Op: "encode", Err: err}
		}
		entries = append(entries, b)
	}
	entries = append(entries, foreign...)

	raw, err := json.Marshal(entries)
	if err != nil {
		return &PersistError{Op: "encode", Err: err}
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		s.log.Error("draft store write failed", "error", err, "drafts", len(drafts))
		return &PersistError{Op: "write", Err: err}
	}
	return nil
}

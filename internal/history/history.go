// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps the bounded, most-recent-first list of past scans
// and persists it as one JSON value under a fixed key.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/maezuru/internal/kvstore"
	"github.com/pdiddy/maezuru/pkg/types"
)

const (
	// Key is the storage key the whole history list lives under.
	Key = "maezuru_history"

	// DefaultCapacity is the number of entries kept when none is configured.
	DefaultCapacity = 50

	// queryExcerptLen is the number of characters of the query kept per entry.
	queryExcerptLen = 30
)

// ErrNotFound is returned by Get for an unknown entry ID.
var ErrNotFound = errors.New("history entry not found")

// History is the in-memory list plus its durable backing store.
type History struct {
	mu       sync.RWMutex
	store    kvstore.Store
	log      logrus.FieldLogger
	capacity int
	entries  []types.HistoryEntry

	now   func() time.Time
	newID func() string
}

// Open loads the persisted list from store. A missing value yields an empty
// history; a value that fails to parse is logged and discarded.
func Open(ctx context.Context, store kvstore.Store, log logrus.FieldLogger, capacity int) (*History, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	h := &History{
		store:    store,
		log:      log,
		capacity: capacity,
		now:      time.Now,
		newID:    uuid.NewString,
	}

	raw, err := store.Get(ctx, Key)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return h, nil
	case err != nil:
		return nil, fmt.Errorf("loading history: %w", err)
	}

	var entries []types.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.WithError(err).Warn("failed to parse history, starting empty")
		return h, nil
	}
	if len(entries) > capacity {
		entries = entries[:capacity]
	}
	h.entries = entries
	return h, nil
}

// Append records a successful scan at the front of the list, evicts entries
// past capacity and persists the full list. The result's CapturedAt is used
// as the entry timestamp when set.
func (h *History) Append(ctx context.Context, req types.ScanRequest, result types.ScanResult) (types.HistoryEntry, error) {
	captured := h.now()
	if result.CapturedAt != nil {
		captured = *result.CapturedAt
	}

	entry := types.HistoryEntry{
		ID:         h.newID(),
		Query:      Excerpt(req.Query),
		Type:       req.Type,
		CapturedAt: captured,
		Result:     result,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	updated := make([]types.HistoryEntry, 0, len(h.entries)+1)
	updated = append(updated, entry)
	updated = append(updated, h.entries...)
	if len(updated) > h.capacity {
		updated = updated[:h.capacity]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return types.HistoryEntry{}, fmt.Errorf("marshaling history: %w", err)
	}
	if err := h.store.Set(ctx, Key, string(data)); err != nil {
		return types.HistoryEntry{}, fmt.Errorf("persisting history: %w", err)
	}

	h.entries = updated
	return entry, nil
}

// Clear removes the persisted value and empties the list.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Remove(ctx, Key); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	h.entries = nil
	return nil
}

// Entries returns a copy of the list, most recent first.
func (h *History) Entries() []types.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Get returns the entry with the given ID. A unique ID prefix is accepted
// so the CLI can work with short IDs.
func (h *History) Get(id string) (types.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var match *types.HistoryEntry
	for i := range h.entries {
		e := &h.entries[i]
		if e.ID == id {
			return *e, nil
		}
		if id != "" && len(id) < len(e.ID) && e.ID[:len(id)] == id {
			if match != nil {
				return types.HistoryEntry{}, fmt.Errorf("ambiguous history id %q", id)
			}
			match = e
		}
	}
	if match == nil {
		return types.HistoryEntry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return *match, nil
}

// Excerpt truncates q to its first 30 characters.
func Excerpt(q string) string {
	if utf8.RuneCountInString(q) <= queryExcerptLen {
		return q
	}
	runes := []rune(q)
	return string(runes[:queryExcerptLen])
}

package service

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"herosearch/internal/model"
	"herosearch/internal/utils"

	"go.uber.org/zap"
)

// DefaultHistoryLimit caps the number of remembered queries
const DefaultHistoryLimit = 50

// Storage is the key/value port the history store persists through
type Storage interface {
	// Get returns the stored value and whether the key exists
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// HistoryOption customizes a HistoryStore
type HistoryOption func(*HistoryStore)

// WithHistoryLimit overrides DefaultHistoryLimit
func WithHistoryLimit(limit int) HistoryOption {
	return func(h *HistoryStore) {
		if limit > 0 {
			h.limit = limit
		}
	}
}

// WithClock overrides time.Now for entry timestamps
func WithClock(now func() time.Time) HistoryOption {
	return func(h *HistoryStore) {
		h.now = now
	}
}

// WithHistoryLogger sets the logger used for swallowed storage errors
func WithHistoryLogger(logger *zap.Logger) HistoryOption {
	return func(h *HistoryStore) {
		h.logger = logger
	}
}

// HistoryStore keeps recent queries, most recent first, deduplicated
// case-insensitively and capped. Storage failures never surface to callers.
type HistoryStore struct {
	mu      sync.Mutex
	storage Storage
	key     string
	limit   int
	now     func() time.Time
	logger  *zap.Logger
	entries []model.HistoryEntry
}

// NewHistoryStore creates a store and loads what storage holds under key.
// Unreadable or corrupt data loads as an empty history.
func NewHistoryStore(storage Storage, key string, opts ...HistoryOption) *HistoryStore {
	h := &HistoryStore{
		storage: storage,
		key:     key,
		limit:   DefaultHistoryLimit,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.entries = h.load()
	return h
}

func (h *HistoryStore) load() []model.HistoryEntry {
	raw, ok, err := h.storage.Get(h.key)
	if err != nil {
		h.logger.Warn("history read failed", zap.String("key", h.key), zap.Error(err))
		return []model.HistoryEntry{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []model.HistoryEntry{}
	}

	var stored []model.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		h.logger.Warn("history is corrupt, starting empty", zap.String("key", h.key), zap.Error(err))
		return []model.HistoryEntry{}
	}

	// keep the invariants even if storage was written by someone else
	entries := make([]model.HistoryEntry, 0, len(stored))
	seen := make(map[string]bool, len(stored))
	for _, e := range stored {
		q := strings.TrimSpace(e.Q)
		folded := utils.FoldQuery(q)
		if q == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		entries = append(entries, model.HistoryEntry{Q: q, Date: e.Date})
		if len(entries) == h.limit {
			break
		}
	}
	return entries
}

// Add records q at the head, drops earlier case-insensitive duplicates,
// truncates to the limit and persists synchronously. Blank queries are ignored.
func (h *HistoryStore) Add(q string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	folded := utils.FoldQuery(q)
	next := make([]model.HistoryEntry, 0, len(h.entries)+1)
	next = append(next, model.HistoryEntry{Q: q, Date: h.now().UnixMilli()})
	for _, e := range h.entries {
		if utils.FoldQuery(e.Q) == folded {
			continue
		}
		next = append(next, e)
	}
	if len(next) > h.limit {
		next = next[:h.limit]
	}
	h.entries = next

	data, err := json.Marshal(h.entries)
	if err != nil {
		h.logger.Warn("history encode failed", zap.Error(err))
		return
	}
	if err := h.storage.Set(h.key, string(data)); err != nil {
		h.logger.Warn("history write failed", zap.String("key", h.key), zap.Error(err))
	}
}

// Clear empties both the in-memory and the persisted history
func (h *HistoryStore) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = []model.HistoryEntry{}
	if err := h.storage.Remove(h.key); err != nil {
		h.logger.Warn("history remove failed", zap.String("key", h.key), zap.Error(err))
	}
}

// Entries returns a copy of the history, most recent first
func (h *HistoryStore) Entries() []model.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]model.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"herosearch/internal/metrics"
	"herosearch/internal/model"

	"go.uber.org/zap"
)

// Searcher runs a prompt against the search backend
type Searcher interface {
	Search(ctx context.Context, prompt string) ([]model.RawRecord, error)
}

// StageController drives the search modal through idle, loading and results.
//
// There is no error stage: a failed search lands in results with no items.
// Submits are neither cancelled nor sequenced, so when two overlap the last
// response to arrive wins. The mutex only keeps memory consistent.
type StageController struct {
	searcher   Searcher
	normalizer *Normalizer
	history    *HistoryStore
	metrics    *metrics.Metrics
	logger     *zap.Logger

	mu    sync.Mutex
	stage model.Stage
	query string
	items []model.SearchItem
}

// NewStageController creates a controller in the idle stage. history may be nil.
func NewStageController(
	searcher Searcher,
	normalizer *Normalizer,
	history *HistoryStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *StageController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageController{
		searcher:   searcher,
		normalizer: normalizer,
		history:    history,
		metrics:    m,
		logger:     logger,
		stage:      model.StageIdle,
		items:      []model.SearchItem{},
	}
}

// Open resets the modal to idle
func (c *StageController) Open() {
	c.reset()
}

// Close discards the query and results. Reopening starts from idle.
func (c *StageController) Close() {
	c.reset()
}

func (c *StageController) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage = model.StageIdle
	c.query = ""
	c.items = []model.SearchItem{}
}

// Submit runs a search for query and returns the normalized items.
// A blank query moves straight to results without calling the searcher.
func (c *StageController) Submit(ctx context.Context, query string) []model.SearchItem {
	trimmed := strings.TrimSpace(query)

	if trimmed == "" {
		c.set(model.StageResults, trimmed, []model.SearchItem{})
		c.metrics.ObserveSubmit(metrics.OutcomeEmptyQuery)
		return []model.SearchItem{}
	}

	if c.history != nil {
		c.history.Add(trimmed)
	}
	c.set(model.StageLoading, trimmed, []model.SearchItem{})

	start := time.Now()
	records, err := c.searcher.Search(ctx, trimmed)
	if err != nil {
		c.logger.Warn("search failed, showing no results",
			zap.String("query", trimmed),
			zap.Error(err),
		)
		c.set(model.StageResults, trimmed, []model.SearchItem{})
		c.metrics.ObserveSubmit(metrics.OutcomeUpstreamError)
		return []model.SearchItem{}
	}

	items := c.normalizer.Normalize(records)
	c.set(model.StageResults, trimmed, items)

	outcome := metrics.OutcomeResults
	if len(items) == 0 {
		outcome = metrics.OutcomeNoResults
	}
	c.metrics.ObserveSubmit(outcome)
	c.logger.Debug("search completed",
		zap.String("query", trimmed),
		zap.Int("items", len(items)),
		zap.Duration("took", time.Since(start)),
	)

	out := make([]model.SearchItem, len(items))
	copy(out, items)
	return out
}

func (c *StageController) set(stage model.Stage, query string, items []model.SearchItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage = stage
	c.query = query
	c.items = items
}

// Stage returns the current stage
func (c *StageController) Stage() model.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Query returns the last submitted query, trimmed
func (c *StageController) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Results returns a copy of the items shown in the results stage
func (c *StageController) Results() []model.SearchItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.SearchItem, len(c.items))
	copy(out, c.items)
	return out
}

// History returns the history store, nil when the controller has none
func (c *StageController) History() *HistoryStore {
	return c.history
}

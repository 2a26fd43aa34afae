package service

import (
	"context"
	"strings"

	"herosearch/internal/metrics"
	"herosearch/internal/model"

	"go.uber.org/zap"
)

// DocumentRepository is the storage behind POST /recherche
type DocumentRepository interface {
	SearchDocuments(ctx context.Context, prompt string, embedding []float32, limit int) ([]model.RawRecord, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// SearchService answers /recherche prompts from the search_documents table
type SearchService struct {
	repo     DocumentRepository
	embedder Embedder
	limit    int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewSearchService creates a new search service. embedder may be nil.
func NewSearchService(
	repo DocumentRepository,
	embedder Embedder,
	limit int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 20
	}
	return &SearchService{
		repo:     repo,
		embedder: embedder,
		limit:    limit,
		metrics:  m,
		logger:   logger,
	}
}

// Search implements Searcher so the modal flow can run in-process
func (s *SearchService) Search(ctx context.Context, prompt string) ([]model.RawRecord, error) {
	return s.Recherche(ctx, prompt)
}

// Recherche returns the raw records matching prompt. Semantic ranking is used
// when an embedder is available; a failing embedder degrades to full-text.
func (s *SearchService) Recherche(ctx context.Context, prompt string) ([]model.RawRecord, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return []model.RawRecord{}, nil
	}

	var embedding []float32
	if s.embedder != nil && s.embedder.IsEnabled() {
		vectors, err := s.embedder.CreateEmbeddings(ctx, []string{prompt})
		if err != nil {
			s.logger.Warn("prompt embedding failed, using full-text search", zap.Error(err))
		} else if len(vectors) == 1 {
			embedding = vectors[0]
		}
	}

	records, err := s.repo.SearchDocuments(ctx, prompt, embedding, s.limit)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRecherche(len(records))
	s.logger.Debug("recherche",
		zap.String("prompt", prompt),
		zap.Bool("semantic", embedding != nil),
		zap.Int("results", len(records)),
	)
	return records, nil
}

// UpdateEmbeddings stores document vectors
func (s *SearchService) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	return s.repo.BatchUpdateEmbeddings(ctx, items)
}

package handler

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"herosearch/internal/metrics"
	"herosearch/internal/model"
	"herosearch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHeader carries the session whose history is read and written
const SessionHeader = "X-Session-Id"

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SearchHandler runs the hero search flow on behalf of browser sessions
type SearchHandler struct {
	searcher     service.Searcher
	normalizer   *service.Normalizer
	storage      service.Storage
	historyKey   string
	historyLimit int
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(
	searcher service.Searcher,
	normalizer *service.Normalizer,
	storage service.Storage,
	historyKey string,
	historyLimit int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchHandler{
		searcher:     searcher,
		normalizer:   normalizer,
		storage:      storage,
		historyKey:   historyKey,
		historyLimit: historyLimit,
		metrics:      m,
		logger:       logger,
	}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	startTime := time.Now()

	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sessionID, ok := h.sessionID(c, req.SessionID, true)
	if !ok {
		return
	}

	controller := service.NewStageController(
		h.searcher,
		h.normalizer,
		h.history(sessionID),
		h.metrics,
		h.logger.With(zap.String("session_id", sessionID)),
	)
	controller.Open()
	items := controller.Submit(c.Request.Context(), req.Query)

	c.JSON(http.StatusOK, model.SearchResponse{
		SessionID: sessionID,
		Stage:     controller.Stage(),
		Query:     controller.Query(),
		Items:     items,
		Took:      time.Since(startTime).Milliseconds(),
	})
}

// History handles GET /api/v1/history
func (h *SearchHandler) History(c *gin.Context) {
	sessionID, ok := h.sessionID(c, "", false)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, model.HistoryResponse{
		SessionID: sessionID,
		Entries:   h.history(sessionID).Entries(),
	})
}

// ClearHistory handles DELETE /api/v1/history
func (h *SearchHandler) ClearHistory(c *gin.Context) {
	sessionID, ok := h.sessionID(c, "", false)
	if !ok {
		return
	}

	h.history(sessionID).Clear()
	c.Status(http.StatusNoContent)
}

func (h *SearchHandler) history(sessionID string) *service.HistoryStore {
	return service.NewHistoryStore(
		h.storage,
		h.historyKey+":"+sessionID,
		service.WithHistoryLimit(h.historyLimit),
		service.WithHistoryLogger(h.logger),
	)
}

// sessionID resolves the session from the header, then the body. When
// generate is set a missing session gets a fresh id; invalid ids are rejected.
func (h *SearchHandler) sessionID(c *gin.Context, fromBody string, generate bool) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(SessionHeader))
	if id == "" {
		id = strings.TrimSpace(fromBody)
	}

	if id == "" {
		if !generate {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing " + SessionHeader + " header"})
			return "", false
		}
		id = uuid.NewString()
	}

	if !validSessionID.MatchString(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return "", false
	}

	c.Header(SessionHeader, id)
	return id, true
}

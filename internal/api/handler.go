// Package api serves supplier search over HTTP for the portal UI.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/strategicvalueplus/scout/internal/query"
	"github.com/strategicvalueplus/scout/internal/source"
	"github.com/strategicvalueplus/scout/internal/source/thomasnet"
	"github.com/strategicvalueplus/scout/internal/supplier"
	"github.com/strategicvalueplus/scout/pkg/proxy"
)

// Version is reported by /health and the capability document.
var Version = "dev"

// Directory is a single-source scraper that can also load profile details.
type Directory interface {
	source.Scraper
	Details(ctx context.Context, profileURL string) (*thomasnet.Details, error)
}

// Searcher runs a search across all configured sources.
type Searcher interface {
	Search(ctx context.Context, c supplier.Criteria) *supplier.Aggregated
	Sources() []supplier.Source
}

// Config holds the handler's dependencies. ThomasNet and Aggregator may be
// nil when disabled; their endpoints then answer 503.
type Config struct {
	ThomasNet  Directory
	Aggregator Searcher
	Parser     *query.Parser
	// Interpreter serves ai_search. Nil uses Parser.
	Interpreter query.Interpreter
	Proxies     *proxy.Pool
	Logger      *slog.Logger
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	thomasnet   Directory
	aggregator  Searcher
	parser      *query.Parser
	interpreter query.Interpreter
	proxies     *proxy.Pool
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(cfg Config) *Handler {
	if cfg.Parser == nil {
		cfg.Parser = query.NewParser("", cfg.Logger)
	}
	if cfg.Interpreter == nil {
		cfg.Interpreter = cfg.Parser
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		thomasnet:   cfg.ThomasNet,
		aggregator:  cfg.Aggregator,
		parser:      cfg.Parser,
		interpreter: cfg.Interpreter,
		proxies:     cfg.Proxies,
		logger:      cfg.Logger,
	}
}

// fail writes the standard error body.
func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "success": false})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	sources := []supplier.Source{}
	if h.aggregator != nil {
		sources = h.aggregator.Sources()
	}
	body := gin.H{
		"status":  "healthy",
		"service": "scout",
		"version": Version,
		"sources": sources,
	}
	if h.proxies != nil {
		body["proxies"] = h.proxies.Stats()
	}
	c.JSON(http.StatusOK, body)
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/strategicvalueplus/scout/internal/query"
	"github.com/strategicvalueplus/scout/internal/source/thomasnet"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

// Actions accepted by POST /api/thomasnet.
const (
	ActionSearchSuppliers    = "search_suppliers"
	ActionSearchByCategory   = "search_by_category"
	ActionGetSupplierDetails = "get_supplier_details"
	ActionAISearch           = "ai_search"
)

// liveSource labels results scraped from ThomasNet during the request.
const liveSource = "thomasnet_live"

type thomasnetRequest struct {
	Action       string       `json:"action"`
	SearchParams searchParams `json:"searchParams"`
}

type searchParams struct {
	Query        string `json:"query"`
	Location     string `json:"location"`
	Category     string `json:"category"`
	ThomasnetURL string `json:"thomasnetUrl"`
}

// ThomasNet dispatches POST /api/thomasnet on the request's action.
func (h *Handler) ThomasNet(c *gin.Context) {
	var req thomasnetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var handle func(*gin.Context, searchParams)
	switch req.Action {
	case ActionSearchSuppliers:
		handle = h.searchSuppliers
	case ActionSearchByCategory:
		handle = h.searchByCategory
	case ActionGetSupplierDetails:
		handle = h.supplierDetails
	case ActionAISearch:
		handle = h.aiSearch
	default:
		fail(c, http.StatusBadRequest, "Unknown action")
		return
	}

	if h.thomasnet == nil {
		fail(c, http.StatusServiceUnavailable, "ThomasNet source is disabled")
		return
	}
	handle(c, req.SearchParams)
}

func (h *Handler) searchSuppliers(c *gin.Context, p searchParams) {
	criteria := h.parser.Parse(p.Query).Criteria()
	if loc := strings.TrimSpace(p.Location); loc != "" {
		criteria.Location = loc
	}
	h.respondSearch(c, criteria)
}

func (h *Handler) searchByCategory(c *gin.Context, p searchParams) {
	category := strings.TrimSpace(p.Category)
	if category == "" {
		fail(c, http.StatusBadRequest, "Category is required")
		return
	}
	criteria := supplier.Criteria{
		Keywords: category,
		Location: strings.TrimSpace(p.Location),
		Category: query.MatchCategory(category),
	}
	h.respondSearch(c, criteria)
}

func (h *Handler) respondSearch(c *gin.Context, criteria supplier.Criteria) {
	res := h.search(c, criteria)
	body := gin.H{
		"success":        true,
		"results":        res.Suppliers,
		"searchCriteria": criteria,
		"total":          res.TotalResults,
		"message":        searchMessage(res),
		"source":         liveSource,
	}
	if res.Error != "" {
		body["error"] = res.Error
	}
	c.JSON(http.StatusOK, body)
}

// search runs the ThomasNet scraper; every failure becomes a soft result.
func (h *Handler) search(c *gin.Context, criteria supplier.Criteria) *supplier.SourceResult {
	res, err := h.thomasnet.Search(c.Request.Context(), criteria)
	if err != nil {
		res = supplier.Failed(err)
	}
	if res == nil {
		res = supplier.Failed(nil)
	}
	if res.Error != "" {
		h.logger.Warn("thomasnet search failed", "keywords", criteria.Keywords, "err", res.Error)
	}
	return res
}

func searchMessage(res *supplier.SourceResult) string {
	switch {
	case len(res.Suppliers) > 0:
		return fmt.Sprintf("Found %d suppliers from ThomasNet", len(res.Suppliers))
	case res.Error != "":
		return "ThomasNet search is unavailable right now; please try again later"
	default:
		return "No suppliers found; try broader keywords or a different location"
	}
}

func (h *Handler) supplierDetails(c *gin.Context, p searchParams) {
	raw := strings.TrimSpace(p.ThomasnetURL)
	if raw == "" {
		fail(c, http.StatusBadRequest, "ThomasNet URL is required")
		return
	}
	if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail(c, http.StatusBadRequest, "Invalid ThomasNet URL")
		return
	}

	details, err := h.thomasnet.Details(c.Request.Context(), raw)
	if errors.Is(err, thomasnet.ErrInvalidProfileURL) {
		fail(c, http.StatusBadRequest, "Invalid ThomasNet URL")
		return
	}
	if err != nil {
		h.logger.Warn("supplier details failed", "url", raw, "err", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error(), "details": gin.H{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "details": details})
}

func (h *Handler) aiSearch(c *gin.Context, p searchParams) {
	text := strings.TrimSpace(p.Query)
	if text == "" {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"results":     []supplier.Record{},
			"message":     "Describe the suppliers you need, for example a process and a location",
			"suggestions": query.DefaultSuggestions(),
		})
		return
	}

	interp, err := h.interpreter.Interpret(c.Request.Context(), text)
	if err != nil {
		h.logger.Warn("interpretation failed, using pattern parser", "err", err)
		interp = h.parser.Parse(text)
	}

	res := h.search(c, interp.Criteria())
	body := gin.H{
		"success":               true,
		"interpretation":        interp,
		"results":               res.Suppliers,
		"total":                 res.TotalResults,
		"source":                liveSource,
		"message":               searchMessage(res),
		"refinementSuggestions": query.RefinementSuggestions(interp, len(res.Suppliers)),
	}
	if res.Error != "" {
		body["error"] = res.Error
	}
	c.JSON(http.StatusOK, body)
}

type capability struct {
	Action      string   `json:"action"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
}

// Capabilities serves GET /api/thomasnet.
func (h *Handler) Capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "ThomasNet supplier search",
		"version": Version,
		"enabled": h.thomasnet != nil,
		"method":  "POST",
		"actions": []capability{
			{ActionSearchSuppliers, "Search suppliers from a free-text query", []string{"query", "location?"}},
			{ActionSearchByCategory, "Search suppliers in a category", []string{"category", "location?"}},
			{ActionGetSupplierDetails, "Contact details from a ThomasNet profile page", []string{"thomasnetUrl"}},
			{ActionAISearch, "Interpret a natural-language request and search", []string{"query"}},
		},
		"categories": query.Categories(),
	})
}

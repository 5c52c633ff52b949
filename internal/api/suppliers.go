package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/strategicvalueplus/scout/internal/query"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

type supplierSearchRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
}

type supplierSearchResponse struct {
	Success        bool                 `json:"success"`
	Interpretation query.Interpretation `json:"interpretation"`
	*supplier.Aggregated
}

// SearchSuppliers serves POST /api/suppliers/search across every source.
func (h *Handler) SearchSuppliers(c *gin.Context) {
	var req supplierSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	text := strings.TrimSpace(req.Query)
	if text == "" {
		fail(c, http.StatusBadRequest, "Query is required")
		return
	}
	if h.aggregator == nil {
		fail(c, http.StatusServiceUnavailable, "No supplier sources are enabled")
		return
	}

	interp, err := h.interpreter.Interpret(c.Request.Context(), text)
	if err != nil {
		interp = h.parser.Parse(text)
	}
	criteria := interp.Criteria()
	if loc := strings.TrimSpace(req.Location); loc != "" {
		criteria.Location = loc
	}

	c.JSON(http.StatusOK, supplierSearchResponse{
		Success:        true,
		Interpretation: interp,
		Aggregated:     h.aggregator.Search(c.Request.Context(), criteria),
	})
}

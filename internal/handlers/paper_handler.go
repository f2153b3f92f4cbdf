package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/cbe-service/internal/repositories"
	"github.com/prepdeck/cbe-service/internal/services"
	"github.com/prepdeck/cbe-service/internal/utils"
)

type PaperHandler struct {
	BaseHandler
	papers    repositories.PaperRepository
	summaries *services.SummaryService
	exports   *services.ExportService
}

func NewPaperHandler(
	papers repositories.PaperRepository,
	summaries *services.SummaryService,
	exports *services.ExportService,
	logger utils.Logger,
) *PaperHandler {
	return &PaperHandler{
		BaseHandler: NewBaseHandler(logger),
		papers:      papers,
		summaries:   summaries,
		exports:     exports,
	}
}

// ListPapers returns the catalogue of available papers.
func (h *PaperHandler) ListPapers(c *gin.Context) {
	summaries, err := h.papers.List(c.Request.Context())
	if err != nil {
		if repositories.IsFetchError(err) {
			h.RespondWithError(c, http.StatusBadGateway, "Failed to fetch papers from upstream", err)
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to list papers", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"papers": summaries})
}

// GetPaper returns one paper's listing summary. Question bodies are only
// served through an open session so answer keys never leave the service.
func (h *PaperHandler) GetPaper(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	paper, err := h.papers.GetByID(c.Request.Context(), id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "Paper not found"})
			return
		}
		if repositories.IsFetchError(err) {
			h.RespondWithError(c, http.StatusBadGateway, "Failed to fetch paper from upstream", err)
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to load paper", err)
		return
	}

	c.JSON(http.StatusOK, paper.Summary())
}

// GetSummary returns the post-submission review for a paper.
func (h *PaperHandler) GetSummary(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Building attempt summary", "paper_id", id)

	summary, err := h.summaries.BuildSummary(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportSummary streams the review as an Excel workbook.
func (h *PaperHandler) ExportSummary(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	data, err := h.exports.ExportSummaryXLSX(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("summary-%s.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

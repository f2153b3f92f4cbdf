package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepdeck/cbe-service/internal/services"
	"github.com/prepdeck/cbe-service/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	sessions  *services.SessionManager
	validator *utils.Validator
}

func NewSessionHandler(
	sessions *services.SessionManager,
	validator *utils.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		validator:   validator,
	}
}

type OpenSessionRequest struct {
	PaperID string `json:"paper_id" validate:"required"`
}

type JumpRequest struct {
	Index int `json:"index" validate:"required,min=1"`
}

type KeyRequest struct {
	Key string `json:"key" validate:"required"`
}

// OpenSession starts (or resumes) a practice session on a paper.
func (h *SessionHandler) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Opening session", "paper_id", req.PaperID)

	runner, err := h.sessions.Open(c.Request.Context(), req.PaperID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, runner.View())
}

// GetSession returns the session snapshot.
func (h *SessionHandler) GetSession(c *gin.Context) {
	runner, ok := h.runner(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, runner.View())
}

// Next advances to the next question.
func (h *SessionHandler) Next(c *gin.Context) {
	h.mutate(c, func(r *services.Runner) error {
		return r.Next(c.Request.Context())
	})
}

// Prev moves back one question.
func (h *SessionHandler) Prev(c *gin.Context) {
	h.mutate(c, func(r *services.Runner) error {
		return r.Prev(c.Request.Context())
	})
}

// Jump moves directly to a 1-based question number.
func (h *SessionHandler) Jump(c *gin.Context) {
	var req JumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.mutate(c, func(r *services.Runner) error {
		return r.JumpTo(c.Request.Context(), req.Index-1)
	})
}

// Flag toggles the review flag on the current question.
func (h *SessionHandler) Flag(c *gin.Context) {
	h.mutate(c, func(r *services.Runner) error {
		return r.ToggleFlag(c.Request.Context())
	})
}

// Answer records a selection or free-text response.
func (h *SessionHandler) Answer(c *gin.Context) {
	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.mutate(c, func(r *services.Runner) error {
		return r.SubmitAnswer(c.Request.Context(), &req)
	})
}

// Key dispatches a keyboard shortcut to the session.
func (h *SessionHandler) Key(c *gin.Context) {
	var req KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.mutate(c, func(r *services.Runner) error {
		return r.HandleKey(c.Request.Context(), req.Key)
	})
}

// Calculator toggles the on-screen calculator panel.
func (h *SessionHandler) Calculator(c *gin.Context) {
	runner, ok := h.runner(c)
	if !ok {
		return
	}
	runner.ToggleCalculator()
	c.JSON(http.StatusOK, runner.View())
}

// Notes toggles the scratchpad panel.
func (h *SessionHandler) Notes(c *gin.Context) {
	runner, ok := h.runner(c)
	if !ok {
		return
	}
	runner.ToggleNotes()
	c.JSON(http.StatusOK, runner.View())
}

type NotesRequest struct {
	Text string `json:"text"`
}

// GetNotes returns the paper's scratchpad text.
func (h *SessionHandler) GetNotes(c *gin.Context) {
	runner, ok := h.runner(c)
	if !ok {
		return
	}

	text, err := runner.Notes(c.Request.Context())
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to read notes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// SaveNotes stores the paper's scratchpad text.
func (h *SessionHandler) SaveNotes(c *gin.Context) {
	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	runner, ok := h.runner(c)
	if !ok {
		return
	}

	if err := runner.SetNotes(c.Request.Context(), req.Text); err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to save notes", err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Notes saved", nil)
}

// Submit ends the attempt and returns its result.
func (h *SessionHandler) Submit(c *gin.Context) {
	runner, ok := h.runner(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "session_id", runner.ID())

	result, err := runner.Submit(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CloseSession tears down the session. Attempt state stays persisted so the
// paper can be reopened later.
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.sessions.Close(id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Session closed", gin.H{"session_id": id})
}

func (h *SessionHandler) runner(c *gin.Context) (*services.Runner, bool) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return nil, false
	}

	runner, err := h.sessions.Get(id)
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}
	return runner, true
}

func (h *SessionHandler) mutate(c *gin.Context, op func(*services.Runner) error) {
	runner, ok := h.runner(c)
	if !ok {
		return
	}
	if err := op(runner); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, runner.View())
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/cbe-service/internal/events"
	"github.com/prepdeck/cbe-service/internal/repositories"
	"github.com/prepdeck/cbe-service/internal/services"
	"github.com/prepdeck/cbe-service/internal/store"
	"github.com/prepdeck/cbe-service/internal/utils"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	slogger := utils.ToSlog(logger)

	bus := events.NewMockBus(slogger)
	t.Cleanup(func() { bus.Close() })

	papers := repositories.NewSeededBank()
	persistent := store.NewMemory()
	sessionStore := store.NewMemory()
	validator := utils.NewValidator()

	sessions := services.NewSessionManager(papers, persistent, sessionStore, bus, validator, slogger)
	summaries := services.NewSummaryService(papers, persistent, sessionStore, slogger)
	exports := services.NewExportService(summaries, slogger)

	router := gin.New()
	NewHandlerManager(papers, sessions, summaries, exports, validator, logger).SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func openSession(t *testing.T, router *gin.Engine, paperID string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", gin.H{"paper_id": paperID})
	require.Equal(t, http.StatusCreated, w.Code)

	var view services.RunnerView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.NotEmpty(t, view.SessionID)
	return view.SessionID
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestPaperEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("List", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/papers", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Papers []struct {
				ID string `json:"id"`
			} `json:"papers"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Papers, 2)
	})

	t.Run("GetKnown", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/papers/bt-2023-jun", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"duration_min":120`)
		// Answer keys never appear on the paper surface.
		assert.NotContains(t, w.Body.String(), `"correct"`)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/papers/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	id := openSession(t, router, "bt-2023-jun")
	base := "/api/v1/sessions/" + id

	t.Run("Snapshot", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, base, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var view services.RunnerView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, "bt-2023-jun", view.PaperID)
		assert.Equal(t, 1, view.Index)
		assert.Equal(t, 3, view.Total)
		assert.Equal(t, services.RunnerRunning, view.State)
		assert.Len(t, view.Navigator, 3)
	})

	t.Run("AnswerAndNavigate", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/answer", gin.H{"question_id": "q1", "option_id": "c"})
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodPost, base+"/next", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var view services.RunnerView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, 2, view.Index)
		assert.Equal(t, 1, view.Answered)
	})

	t.Run("JumpAndFlag", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/jump", gin.H{"index": 3})
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodPost, base+"/flag", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var view services.RunnerView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, 3, view.Index)
		assert.True(t, view.Question.Flagged)
	})

	t.Run("KeyboardShortcut", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/key", gin.H{"key": "ArrowLeft"})
		require.Equal(t, http.StatusOK, w.Code)

		var view services.RunnerView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, 2, view.Index)
	})

	t.Run("Scratchpad", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, base+"/notes", gin.H{"text": "check IAS 16"})
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, base+"/notes", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "check IAS 16")
	})

	t.Run("ToolToggles", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/calculator", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var view services.RunnerView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.True(t, view.CalculatorOpen)
	})

	t.Run("Submit", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/submit", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"score":2`)
	})

	t.Run("SecondSubmitConflicts", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/submit", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("NavigationAfterSubmitConflicts", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/next", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("SummaryAfterSubmit", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/papers/bt-2023-jun/summary", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"has_score":true`)
	})

	t.Run("ExportAfterSubmit", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/papers/bt-2023-jun/export", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "summary-bt-2023-jun.xlsx")
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("Close", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete, base, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, base, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSessionValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	t.Run("OpenWithoutPaperID", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("OpenUnknownPaper", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", gin.H{"paper_id": "missing"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/nope/next", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("AnswerUnknownOption", func(t *testing.T) {
		id := openSession(t, router, "bt-2023-dec")
		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/answer", id),
			gin.H{"question_id": "q1", "option_id": "zz"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

package repositories

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/cbe-service/internal/models"
)

func TestMemoryBank(t *testing.T) {
	ctx := context.Background()
	bank := NewSeededBank()

	t.Run("GetByID", func(t *testing.T) {
		paper, err := bank.GetByID(ctx, "bt-2023-jun")
		require.NoError(t, err)
		assert.Equal(t, "BT", paper.Code)
		assert.Equal(t, 3, paper.QuestionCount())
		assert.Equal(t, 10, paper.TotalMarks())
	})

	t.Run("GetByIDUnknown", func(t *testing.T) {
		_, err := bank.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("ListSortedByID", func(t *testing.T) {
		summaries, err := bank.List(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "bt-2023-dec", summaries[0].ID)
		assert.Equal(t, "bt-2023-jun", summaries[1].ID)
		assert.Equal(t, 120, summaries[1].DurationMinutes)
	})

	t.Run("Put", func(t *testing.T) {
		bank.Put(&models.Paper{ID: "extra", Title: "Extra", Code: "EX", DurationMinutes: 30})
		paper, err := bank.GetByID(ctx, "extra")
		require.NoError(t, err)
		assert.Equal(t, "Extra", paper.Title)
	})
}

func TestSeedPapersAnswerKeys(t *testing.T) {
	papers := SeedPapers()
	require.Len(t, papers, 2)

	jun := papers[0]
	assert.Equal(t, []string{"c"}, jun.Questions[0].CorrectIDs)
	assert.Equal(t, []string{"a", "b", "d"}, jun.Questions[1].CorrectIDs)
	assert.Equal(t, models.QuestionFreeResponse, jun.Questions[2].Type)
	assert.Empty(t, jun.Questions[2].CorrectIDs)
}

func TestHTTPClient(t *testing.T) {
	ctx := context.Background()

	t.Run("GetByID", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/papers/p1", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"p1","title":"Paper","code":"P","duration_min":60,"questions":[]}`))
		}))
		defer srv.Close()

		paper, err := NewHTTPClient(srv.URL).GetByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", paper.ID)
		assert.Equal(t, 60, paper.DurationMinutes)
	})

	t.Run("List", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/papers", r.URL.Path)
			w.Write([]byte(`{"papers":[{"id":"p1","code":"P","title":"Paper","duration_min":60,"questions":2}]}`))
		}))
		defer srv.Close()

		summaries, err := NewHTTPClient(srv.URL).List(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, 2, summaries[0].QuestionCount)
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL).GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ServerError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL).GetByID(ctx, "p1")
		assert.ErrorIs(t, err, ErrFetch)
		assert.True(t, IsFetchError(err))
	})

	t.Run("UnreachableHost", func(t *testing.T) {
		_, err := NewHTTPClient("http://127.0.0.1:1").List(ctx)
		assert.ErrorIs(t, err, ErrFetch)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL).GetByID(ctx, "p1")
		assert.ErrorIs(t, err, ErrFetch)
	})
}

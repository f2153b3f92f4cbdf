package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/prepdeck/cbe-service/internal/repositories"
	"github.com/prepdeck/cbe-service/internal/services"
	"github.com/prepdeck/cbe-service/internal/utils"
)

type HandlerManager struct {
	paperHandler   *PaperHandler
	sessionHandler *SessionHandler
}

func NewHandlerManager(
	papers repositories.PaperRepository,
	sessions *services.SessionManager,
	summaries *services.SummaryService,
	exports *services.ExportService,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		paperHandler:   NewPaperHandler(papers, summaries, exports, logger),
		sessionHandler: NewSessionHandler(sessions, validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		papers := v1.Group("/papers")
		{
			papers.GET("", hm.paperHandler.ListPapers)
			papers.GET("/:id", hm.paperHandler.GetPaper)
			papers.GET("/:id/summary", hm.paperHandler.GetSummary)
			papers.GET("/:id/export", hm.paperHandler.ExportSummary)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.OpenSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.CloseSession)

			sessions.POST("/:id/next", hm.sessionHandler.Next)
			sessions.POST("/:id/prev", hm.sessionHandler.Prev)
			sessions.POST("/:id/jump", hm.sessionHandler.Jump)
			sessions.POST("/:id/flag", hm.sessionHandler.Flag)
			sessions.POST("/:id/answer", hm.sessionHandler.Answer)
			sessions.POST("/:id/key", hm.sessionHandler.Key)
			sessions.POST("/:id/calculator", hm.sessionHandler.Calculator)
			sessions.POST("/:id/notes", hm.sessionHandler.Notes)
			sessions.GET("/:id/notes", hm.sessionHandler.GetNotes)
			sessions.PUT("/:id/notes", hm.sessionHandler.SaveNotes)
			sessions.POST("/:id/submit", hm.sessionHandler.Submit)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "cbe-service",
		})
	})
}

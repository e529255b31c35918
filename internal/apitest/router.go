package apitest

import (
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/response"
	"github.com/gin-gonic/gin"
)

// Router builds the Gin engine serving every route under /api.
func (b *Backend) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Request ID first so every log line and response carries it.
	router.Use(response.RequestIDMiddleware())
	router.Use(b.requestLogger())
	router.Use(Brotli(BrotliConfig{MinLength: b.opts.BrotliMinLength}))
	router.Use(b.record())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// ─── 1. Auth (public) ──────────────────────────────────────────────
	public := api.Group("")
	public.Use(b.throttle.middleware())
	{
		public.POST("/auth/student/login/", b.StudentLogin)
		public.POST("/auth/professor/login/", b.ProfessorLogin)
		public.POST("/auth/student/signup/", b.StudentSignup)
	}
	api.POST("/token/refresh/", b.RefreshToken)

	// ─── 2. Authenticated ──────────────────────────────────────────────
	authed := api.Group("")
	authed.Use(b.requireAuth())
	{
		authed.GET("/auth/me/", b.Me)

		authed.GET("/exams/", b.ListExams)
		authed.POST("/exams/", b.CreateExam)
		authed.GET("/exams/:id/", b.GetExam)
		authed.POST("/exams/:id/publish/", b.PublishExam)
		authed.POST("/exams/:id/unpublish/", b.UnpublishExam)

		authed.GET("/student-exams/", b.ListSessions)
		authed.POST("/student-exams/start_exam/", b.StartExam)
		authed.GET("/student-exams/:id/", b.GetSession)
		authed.PATCH("/student-exams/:id/", b.SetMarks)
		authed.POST("/student-exams/:id/submit_answer/", b.SubmitAnswer)
		authed.POST("/student-exams/:id/submit_exam/", b.SubmitExam)

		authed.GET("/messages/", b.ListMessages)
		authed.POST("/messages/", b.SendMessage)
		authed.GET("/messages/unread_count/", b.UnreadCount)
		authed.POST("/messages/:id/mark_read/", b.MarkRead)

		authed.GET("/swot/questions/", b.SWOTQuestions)
		authed.POST("/swot/analyses/submit/", b.SubmitSWOT)
		authed.GET("/swot/analyses/my_analyses/", b.MyAnalyses)
	}

	return router
}

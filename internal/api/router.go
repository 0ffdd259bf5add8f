package api

import (
	"github.com/fasthttp/router"
)

type Handlers struct {
	Schedule *ScheduleHandler
	Template *TemplateHandler
	Diary    *DiaryHandler
	Health   *HealthHandler
}

func NewRouter(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.GET("/api/v1/schedule/{date}", handlers.Schedule.Get)
	r.GET("/api/v1/schedule/{date}/context", handlers.Schedule.Context)
	r.POST("/api/v1/schedule/{date}/items", handlers.Schedule.AddItem)
	r.DELETE("/api/v1/schedule/{date}/items", handlers.Schedule.ClearAll)
	r.POST("/api/v1/schedule/{date}/items/{id}/toggle", handlers.Schedule.Toggle)
	r.DELETE("/api/v1/schedule/{date}/items/{id}", handlers.Schedule.DeleteItem)
	r.POST("/api/v1/schedule/{date}/clear-completed", handlers.Schedule.ClearCompleted)

	r.GET("/api/v1/templates", handlers.Template.List)
	r.GET("/api/v1/templates.ics", handlers.Template.Calendar)
	r.PATCH("/api/v1/templates/{id}", handlers.Template.Update)
	r.DELETE("/api/v1/templates/{id}", handlers.Template.Delete)

	r.GET("/api/v1/diary", handlers.Diary.List)
	r.POST("/api/v1/diary", handlers.Diary.Create)
	r.GET("/api/v1/diary/{id}", handlers.Diary.Get)
	r.PATCH("/api/v1/diary/{id}", handlers.Diary.Update)
	r.DELETE("/api/v1/diary/{id}", handlers.Diary.Delete)

	return r
}

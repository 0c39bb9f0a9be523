package feedback

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apps"
)

type FeedbackPlugin struct{}

func New() *FeedbackPlugin {
	return &FeedbackPlugin{}
}

func (p *FeedbackPlugin) ID() string { return "feedback" }

func (p *FeedbackPlugin) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	svc := NewFeedbackService(deps)
	handler := NewFeedbackHandler(svc)

	router.Post("/video-submissions", handler.Create)
	router.Get("/video-submissions", handler.List)
	router.Get("/video-submissions/:id/upload-url", handler.UploadURL)
	router.Get("/video-submissions/:id/video-url", handler.VideoURL)
	router.Patch("/video-submissions/:id/reviewed", handler.MarkReviewed)
	router.Get("/video-submissions/:id/messages", handler.Messages)
	router.Post("/video-submissions/:id/messages", handler.CreateMessage)
	router.Get("/students/:student_id/video-submissions", handler.StudentSubmissions)
	router.Get("/messages/:id/video-url", handler.MessageVideoURL)
}

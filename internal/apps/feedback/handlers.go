package feedback

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/authctx"
)

type FeedbackHandler struct {
	service *FeedbackService
}

func NewFeedbackHandler(service *FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

func parseFilter(c *fiber.Ctx) (SubmissionFilter, error) {
	var filter SubmissionFilter
	var err error
	if filter.PieceID, err = apps.UUIDQuery(c, "piece_id"); err != nil {
		return filter, err
	}
	if filter.ExerciseID, err = apps.UUIDQuery(c, "exercise_id"); err != nil {
		return filter, err
	}
	filter.PendingReview = c.QueryBool("pending_review", false)
	return filter, nil
}

func (h *FeedbackHandler) Create(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	var req CreateSubmissionRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	resp, err := h.service.Create(c.UserContext(), user, req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *FeedbackHandler) List(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	// pending_review applies to the teacher view only.
	filter.PendingReview = false
	submissions, err := h.service.List(user, filter)
	if err != nil {
		return err
	}
	return c.JSON(submissions)
}

func (h *FeedbackHandler) StudentSubmissions(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	studentID, err := apps.UUIDParam(c, "student_id")
	if err != nil {
		return err
	}
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	submissions, err := h.service.StudentSubmissions(user, studentID, filter)
	if err != nil {
		return err
	}
	return c.JSON(submissions)
}

func (h *FeedbackHandler) UploadURL(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := h.service.UploadURL(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *FeedbackHandler) VideoURL(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := h.service.VideoURL(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *FeedbackHandler) MarkReviewed(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	submission, err := h.service.MarkReviewed(user, id)
	if err != nil {
		return err
	}
	return c.JSON(submission)
}

func (h *FeedbackHandler) Messages(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	messages, err := h.service.Messages(user, id)
	if err != nil {
		return err
	}
	return c.JSON(messages)
}

func (h *FeedbackHandler) CreateMessage(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req CreateMessageRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	resp, err := h.service.CreateMessage(c.UserContext(), user, id, req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *FeedbackHandler) MessageVideoURL(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := h.service.MessageVideoURL(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

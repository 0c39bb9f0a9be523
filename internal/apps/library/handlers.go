package library

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/authctx"
	"github.com/loopflow/cadenza/internal/dto"
)

type LibraryHandler struct {
	service *LibraryService
}

func NewLibraryHandler(service *LibraryService) *LibraryHandler {
	return &LibraryHandler{service: service}
}

func (h *LibraryHandler) List(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	pieces, err := h.service.List(user)
	if err != nil {
		return err
	}
	return c.JSON(pieces)
}

func (h *LibraryHandler) Create(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("pdf_file")
	if err != nil {
		return ErrPDFFileRequired
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.BadRequest("Invalid pdf_file")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return apperr.BadRequest("Invalid pdf_file")
	}

	piece, err := h.service.Create(c.UserContext(), user, c.FormValue("title"), fh.Filename, content)
	if err != nil {
		return err
	}
	return c.JSON(piece)
}

func (h *LibraryHandler) Update(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req UpdatePieceRequest
	req.Title = c.Query("title")
	if req.Title == "" {
		if err := apps.ParseBody(c, &req); err != nil {
			return err
		}
	}

	piece, err := h.service.UpdateTitle(user, id, req.Title)
	if err != nil {
		return err
	}
	return c.JSON(piece)
}

func (h *LibraryHandler) Delete(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(user, id); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Piece deleted successfully"})
}

func (h *LibraryHandler) DownloadURL(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	resp, err := h.service.DownloadURL(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *LibraryHandler) Share(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	pieceID, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	studentID, err := apps.UUIDParam(c, "student_id")
	if err != nil {
		return err
	}
	piece, err := h.service.Share(user, pieceID, studentID)
	if err != nil {
		return err
	}
	return c.JSON(piece)
}

func (h *LibraryHandler) StudentPieces(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	studentID, err := apps.UUIDParam(c, "student_id")
	if err != nil {
		return err
	}
	pieces, err := h.service.StudentPieces(user, studentID)
	if err != nil {
		return err
	}
	return c.JSON(pieces)
}

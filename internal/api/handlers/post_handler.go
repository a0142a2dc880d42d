package handlers

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"tootsched/internal/service"
	"tootsched/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(s service.PostService) *PostHandler {
	return &PostHandler{s: s}
}

// CreatePost schedules a post, or publishes immediately when no
// scheduled_time is provided.
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	sub := &transfer.PostSubmission{
		Content:        c.FormValue("content"),
		ContentWarning: c.FormValue("content_warning"),
		ImageAltText:   c.FormValue("alt_text"),
		ScheduledTime:  c.FormValue("scheduled_time"),
	}

	file := formFile(c, "image")

	if sub.ScheduledTime == "" {
		statusID, err := h.s.PostNow(c.Context(), sub, file)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":   "Posted successfully",
			"status_id": statusID,
		})
	}

	postID, err := h.s.Schedule(c.Context(), sub, file)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"id":      postID,
	})
}

func (h *PostHandler) EditPost(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid post id"})
	}

	sub := &transfer.PostSubmission{
		Content:        c.FormValue("content"),
		ContentWarning: c.FormValue("content_warning"),
		ImageAltText:   c.FormValue("alt_text"),
		ScheduledTime:  c.FormValue("scheduled_time"),
	}

	if err := h.s.Edit(c.Context(), id, sub, formFile(c, "image")); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Post updated"})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid post id"})
	}

	if err := h.s.Cancel(c.Context(), id); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Post cancelled"})
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid post id"})
	}

	post, err := h.s.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context())
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

// NextPost serves the display client: the earliest pending post, or 404.
func (h *PostHandler) NextPost(c *fiber.Ctx) error {
	next, err := h.s.NextUp(c.Context())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no pending posts"})
		}
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(next)
}

func formFile(c *fiber.Ctx, name string) *multipart.FileHeader {
	file, err := c.FormFile(name)
	if err != nil {
		return nil
	}
	return file
}

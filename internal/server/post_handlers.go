package server

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/notifications"
	"postboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /posts?status=&keywords=&offset=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	offset, err := parseOffset(c)
	if err != nil {
		return err
	}

	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Status:   c.Query("status"),
		Keywords: c.Query("keywords"),
		Offset:   offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": posts})
}

// GetPost handles GET /posts/:id. A missing post is {"data": null}, not a 404.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": post})
}

// CreatePost handles POST /posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req service.CreatePostInput
	if err := c.BodyParser(&req); err != nil {
		return models.NewValidationError("Invalid request body")
	}

	post, err := s.postService.CreatePost(ctx, req)
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "Post created", slog.Int64("post_id", post.ID))
	s.publishPostEvent(ctx, notifications.EventPostCreated, map[string]any{
		"post_id": post.ID,
		"user_id": post.UserID,
		"status":  post.Status,
	})

	return c.JSON(fiber.Map{"message": "Post has been created."})
}

// UpdatePost handles PUT /posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var body map[string]json.RawMessage
	if err := c.BodyParser(&body); err != nil {
		return models.NewValidationError("Invalid request body")
	}

	written, err := s.postService.UpdatePost(ctx, id, body)
	if err != nil {
		return err
	}

	s.publishPostEvent(ctx, notifications.EventPostUpdated, map[string]any{
		"post_id": id,
		"fields":  columnNames(written),
	})

	return c.JSON(fiber.Map{"message": fmt.Sprintf("Post %d has been updated.", id)})
}

// DeletePost handles DELETE /posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := s.postService.DeletePost(ctx, id); err != nil {
		return err
	}

	s.publishPostEvent(ctx, notifications.EventPostDeleted, map[string]any{"post_id": id})

	return c.JSON(fiber.Map{"message": fmt.Sprintf("Post %d has been deleted.", id)})
}

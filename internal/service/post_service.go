// Package service holds the post business rules between the HTTP layer and the repository.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"postboard/internal/models"
	"postboard/internal/repository"

	"github.com/go-playground/validator/v10"
)

// Field rules shared by create and update.
const (
	userIDRule  = "gt=0"
	titleRule   = "required,max=300"
	contentRule = "required,max=50000"
	statusRule  = "required"
	likesRule   = "gte=0"
)

// Columns the update body may carry but which are never written.
var droppedUpdateColumns = []string{"updated_at", "published_at"}

type PostService struct {
	postRepo repository.PostRepository
	validate *validator.Validate
	now      func() time.Time
}

type ListPostsInput struct {
	Status   string
	Keywords string
	Offset   int
}

// CreatePostInput is the POST /posts body.
type CreatePostInput struct {
	UserID   int64  `json:"user_id" validate:"gt=0"`
	Title    string `json:"title" validate:"required,max=300"`
	Content  string `json:"content" validate:"required,max=50000"`
	Status   string `json:"status" validate:"required"`
	Likes    int64  `json:"likes" validate:"gte=0"`
	Category string `json:"category"`
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &PostService{
		postRepo: postRepo,
		validate: v,
		now:      time.Now,
	}
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]models.Post, error) {
	if in.Offset < 0 {
		return nil, models.NewValidationError("offset must be a non-negative integer")
	}
	posts, err := s.postRepo.List(ctx, repository.ListFilter{
		Status:   in.Status,
		Keywords: in.Keywords,
		Offset:   in.Offset,
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// GetPost returns nil without error when the post does not exist.
func (s *PostService) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	now := s.now().UTC()
	post := &models.Post{
		UserID:      in.UserID,
		Title:       in.Title,
		Content:     in.Content,
		Status:      in.Status,
		Likes:       in.Likes,
		Category:    in.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
		PublishedAt: models.PublishedAtFor(in.Status, now),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost applies a partial update and returns the columns it wrote.
//
// The body is overlaid on defaults for updated_at and published_at, and both
// of those columns are then removed from the SET clause. They are accepted in
// the body but never written.
func (s *PostService) UpdatePost(ctx context.Context, id int64, body map[string]json.RawMessage) (map[string]any, error) {
	if len(body) == 0 {
		return nil, models.NewValidationError("request body must contain at least one field to update")
	}

	now := s.now().UTC()
	merged := map[string]any{
		"updated_at":   now,
		"published_at": models.PublishedAtFor(rawStatus(body), now),
	}

	for field, raw := range body {
		value, err := s.decodeUpdateField(field, raw)
		if err != nil {
			return nil, err
		}
		if value != nil {
			merged[field] = value
		}
	}

	for _, column := range droppedUpdateColumns {
		delete(merged, column)
	}
	if len(merged) == 0 {
		return nil, models.NewValidationError("request body must contain at least one updatable field")
	}

	found, err := s.postRepo.Update(ctx, id, merged)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Post", id)
	}
	return merged, nil
}

func (s *PostService) DeletePost(ctx context.Context, id int64) error {
	found, err := s.postRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// decodeUpdateField decodes and validates one body field. A nil value with no
// error means the field is accepted but not written.
func (s *PostService) decodeUpdateField(field string, raw json.RawMessage) (any, error) {
	switch field {
	case "updated_at", "published_at":
		return nil, nil
	case "post_id", "created_at":
		return nil, models.NewValidationError(fmt.Sprintf("%s cannot be updated", field))
	}

	if string(raw) == "null" {
		return nil, models.NewValidationError(fmt.Sprintf("%s must not be null", field))
	}

	switch field {
	case "user_id":
		return s.decodeInt(field, raw, userIDRule)
	case "likes":
		return s.decodeInt(field, raw, likesRule)
	case "title":
		return s.decodeString(field, raw, titleRule)
	case "content":
		return s.decodeString(field, raw, contentRule)
	case "status":
		return s.decodeString(field, raw, statusRule)
	case "category":
		return s.decodeString(field, raw, "")
	}
	return nil, models.NewValidationError(fmt.Sprintf("unknown field %q", field))
}

func (s *PostService) decodeInt(field string, raw json.RawMessage, rule string) (any, error) {
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("%s must be an integer", field))
	}
	if err := s.validate.Var(v, rule); err != nil {
		return nil, fieldValidationError(field, err)
	}
	return v, nil
}

func (s *PostService) decodeString(field string, raw json.RawMessage, rule string) (any, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("%s must be a string", field))
	}
	if rule != "" {
		if err := s.validate.Var(v, rule); err != nil {
			return nil, fieldValidationError(field, err)
		}
	}
	return v, nil
}

// rawStatus returns the body's status when it is a JSON string.
func rawStatus(body map[string]json.RawMessage) string {
	var status string
	if raw, ok := body["status"]; ok {
		_ = json.Unmarshal(raw, &status)
	}
	return status
}

func validationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		return models.NewValidationError(describe(errs[0].Field(), errs[0]))
	}
	return models.NewValidationError(err.Error())
}

func fieldValidationError(field string, err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		return models.NewValidationError(describe(field, errs[0]))
	}
	return models.NewValidationError(err.Error())
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

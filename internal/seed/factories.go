// Package seed provides helpers to create demo posts. These helpers are
// intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	statuses   = []string{"draft", models.StatusPublished, models.StatusPublished, "archived"}
	categories = []string{"general", "news", "tech", "travel", "food", ""}
)

// PostCreator persists a post. *service.PostService satisfies it, so seeded
// posts go through the same validation and timestamp rules as the API.
type PostCreator interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
}

// Factory builds fake post payloads.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory returns a Factory. A zero seed uses the current time.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed)}
}

// BuildPostInput returns a valid create payload with overrides applied in order.
func (f *Factory) BuildPostInput(overrides ...func(*service.CreatePostInput)) service.CreatePostInput {
	in := service.CreatePostInput{
		UserID:   int64(f.faker.Number(1, 50)),
		Title:    f.faker.Sentence(f.faker.Number(3, 8)),
		Content:  f.faker.Paragraph(1, 3, 12, "\n"),
		Status:   f.faker.RandomString(statuses),
		Likes:    int64(f.faker.Number(0, 500)),
		Category: f.faker.RandomString(categories),
	}
	for _, override := range overrides {
		override(&in)
	}
	return in
}

// Posts creates count fake posts and stops at the first failure.
func Posts(ctx context.Context, creator PostCreator, f *Factory, count int) ([]*models.Post, error) {
	created := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		post, err := creator.CreatePost(ctx, f.BuildPostInput())
		if err != nil {
			return created, fmt.Errorf("seed post %d of %d: %w", i+1, count, err)
		}
		created = append(created, post)
	}
	middleware.Logger.InfoContext(ctx, "Seeded posts", slog.Int("count", len(created)))
	return created, nil
}

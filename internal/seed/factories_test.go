package seed

import (
	"context"
	"errors"
	"testing"

	"postboard/internal/models"
	"postboard/internal/repository"
	"postboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	created []*models.Post
	failAt  int
}

func (r *countingRepo) List(context.Context, repository.ListFilter) ([]models.Post, error) {
	return nil, nil
}
func (r *countingRepo) GetByID(context.Context, int64) (*models.Post, error) { return nil, nil }
func (r *countingRepo) Update(context.Context, int64, map[string]any) (bool, error) {
	return false, nil
}
func (r *countingRepo) Delete(context.Context, int64) (bool, error) { return false, nil }
func (r *countingRepo) Create(_ context.Context, post *models.Post) error {
	if r.failAt > 0 && len(r.created)+1 == r.failAt {
		return errors.New("insert failed")
	}
	post.ID = int64(len(r.created) + 1)
	r.created = append(r.created, post)
	return nil
}

func TestFactory_IsDeterministicForSeed(t *testing.T) {
	a := NewFactory(42).BuildPostInput()
	b := NewFactory(42).BuildPostInput()
	assert.Equal(t, a, b)
}

func TestFactory_Overrides(t *testing.T) {
	in := NewFactory(7).BuildPostInput(func(in *service.CreatePostInput) {
		in.Status = models.StatusPublished
		in.Likes = 0
	})
	assert.Equal(t, models.StatusPublished, in.Status)
	assert.Zero(t, in.Likes)
}

func TestPosts_GoThroughValidation(t *testing.T) {
	repo := &countingRepo{}
	svc := service.NewPostService(repo)

	posts, err := Posts(context.Background(), svc, NewFactory(1), 30)
	require.NoError(t, err)
	assert.Len(t, posts, 30)
	for _, p := range posts {
		assert.Equal(t, p.Status == models.StatusPublished, p.PublishedAt != nil)
		assert.False(t, p.CreatedAt.IsZero())
	}
}

func TestPosts_StopsOnFailure(t *testing.T) {
	repo := &countingRepo{failAt: 3}
	svc := service.NewPostService(repo)

	posts, err := Posts(context.Background(), svc, NewFactory(1), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed post 3 of 5")
	assert.Len(t, posts, 2)
}

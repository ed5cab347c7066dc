// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postboard/internal/models"
	"postboard/internal/observability"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// PageSize is the fixed number of posts returned by List.
const PageSize = 10

const postsTable = "posts"

// UpdatableColumns are the columns Update may write.
var UpdatableColumns = map[string]struct{}{
	"user_id":      {},
	"title":        {},
	"content":      {},
	"status":       {},
	"likes":        {},
	"category":     {},
	"updated_at":   {},
	"published_at": {},
}

// ListFilter narrows a List call. Empty strings mean no filter.
type ListFilter struct {
	Status   string
	Keywords string
	Offset   int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	List(ctx context.Context, filter ListFilter) ([]models.Post, error)
	// GetByID returns nil and no error when the post does not exist.
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	// Create inserts post and sets post.ID from the generated key.
	Create(ctx context.Context, post *models.Post) error
	// Update writes fields to the post and reports whether it existed.
	Update(ctx context.Context, id int64, fields map[string]any) (bool, error)
	// Delete removes the post and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// recordDBError marks span as failed and tags it with the SQLSTATE when the
// error came from PostgreSQL.
func recordDBError(span trace.Span, err error) {
	if code := SQLState(err); code != "" {
		span.SetAttributes(attribute.String("db.sqlstate", code))
	}
	observability.RecordError(span, err)
}

// SQLState returns the PostgreSQL error code carried by err, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// likePattern wraps keywords for a substring ILIKE match with wildcards escaped.
func likePattern(keywords string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(keywords)
	return "%" + escaped + "%"
}

func (r *postRepository) List(ctx context.Context, filter ListFilter) ([]models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "List", postsTable)
	defer span.End()
	defer observability.TrackQuery("select", postsTable)()

	if filter.Offset < 0 {
		return nil, fmt.Errorf("negative offset %d", filter.Offset)
	}

	query := sq.Select("*").From(postsTable)
	if filter.Status != "" {
		query = query.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Keywords != "" {
		query = query.Where(sq.ILike{"title": likePattern(filter.Keywords)})
	}
	query = query.Limit(PageSize).Offset(uint64(filter.Offset))

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	posts := make([]models.Post, 0, PageSize)
	if err := r.db.WithContext(ctx).Raw(stmt, args...).Scan(&posts).Error; err != nil {
		recordDBError(span, err)
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "GetByID", postsTable)
	defer span.End()
	defer observability.TrackQuery("select", postsTable)()

	stmt, args, err := sq.Select("*").From(postsTable).Where(sq.Eq{"post_id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var post models.Post
	result := r.db.WithContext(ctx).Raw(stmt, args...).Scan(&post)
	if result.Error != nil {
		recordDBError(span, result.Error)
		return nil, fmt.Errorf("get post %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Create", postsTable)
	defer span.End()
	defer observability.TrackQuery("insert", postsTable)()

	stmt, args, err := sq.Insert(postsTable).
		Columns("user_id", "title", "content", "status", "likes", "category", "created_at", "updated_at", "published_at").
		Values(post.UserID, post.Title, post.Content, post.Status, post.Likes, post.Category, post.CreatedAt, post.UpdatedAt, post.PublishedAt).
		Suffix("RETURNING post_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	var id int64
	if err := r.db.WithContext(ctx).Raw(stmt, args...).Scan(&id).Error; err != nil {
		recordDBError(span, err)
		return fmt.Errorf("create post: %w", err)
	}
	post.ID = id
	return nil
}

func (r *postRepository) Update(ctx context.Context, id int64, fields map[string]any) (bool, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Update", postsTable)
	defer span.End()
	defer observability.TrackQuery("update", postsTable)()

	if len(fields) == 0 {
		return false, fmt.Errorf("update post %d: no fields", id)
	}
	for column := range fields {
		if _, ok := UpdatableColumns[column]; !ok {
			return false, fmt.Errorf("update post %d: column %q is not updatable", id, column)
		}
	}

	stmt, args, err := sq.Update(postsTable).SetMap(fields).Where(sq.Eq{"post_id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build update query: %w", err)
	}

	result := r.db.WithContext(ctx).Exec(stmt, args...)
	if result.Error != nil {
		recordDBError(span, result.Error)
		return false, fmt.Errorf("update post %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *postRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Delete", postsTable)
	defer span.End()
	defer observability.TrackQuery("delete", postsTable)()

	stmt, args, err := sq.Delete(postsTable).Where(sq.Eq{"post_id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete query: %w", err)
	}

	result := r.db.WithContext(ctx).Exec(stmt, args...)
	if result.Error != nil {
		recordDBError(span, result.Error)
		return false, fmt.Errorf("delete post %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

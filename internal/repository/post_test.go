package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"postboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var postColumns = []string{
	"post_id", "user_id", "title", "content", "status", "likes", "category", "created_at", "updated_at", "published_at",
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func postRow(rows *sqlmock.Rows, id int64, title, status string) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(id, 7, title, "body", status, 3, "general", now, now, nil)
}

func TestPostRepository_List(t *testing.T) {
	tests := []struct {
		name   string
		filter ListFilter
		sql    string
		args   []driver.Value
	}{
		{
			name:   "no filters",
			filter: ListFilter{},
			sql:    `SELECT * FROM posts LIMIT 10 OFFSET 0`,
		},
		{
			name:   "status only",
			filter: ListFilter{Status: "published", Offset: 20},
			sql:    `SELECT * FROM posts WHERE status = $1 LIMIT 10 OFFSET 20`,
			args:   []driver.Value{"published"},
		},
		{
			name:   "keywords only",
			filter: ListFilter{Keywords: "golang"},
			sql:    `SELECT * FROM posts WHERE title ILIKE $1 LIMIT 10 OFFSET 0`,
			args:   []driver.Value{"%golang%"},
		},
		{
			name:   "status and keywords",
			filter: ListFilter{Status: "draft", Keywords: "go", Offset: 10},
			sql:    `SELECT * FROM posts WHERE status = $1 AND title ILIKE $2 LIMIT 10 OFFSET 10`,
			args:   []driver.Value{"draft", "%go%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewPostRepository(db)

			expect := mock.ExpectQuery("^" + regexp.QuoteMeta(tt.sql) + "$")
			if len(tt.args) > 0 {
				expect = expect.WithArgs(tt.args...)
			}
			expect.WillReturnRows(postRow(sqlmock.NewRows(postColumns), 1, "Learning Go", "published"))

			posts, err := repo.List(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, posts, 1)
			assert.Equal(t, int64(1), posts[0].ID)
			assert.Equal(t, "Learning Go", posts[0].Title)
			assert.Nil(t, posts[0].PublishedAt)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostRepository_List_EmptyIsNotNil(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM posts LIMIT 10 OFFSET 0`)).
		WillReturnRows(sqlmock.NewRows(postColumns))

	posts, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_List_EscapesWildcards(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM posts WHERE title ILIKE $1 LIMIT 10 OFFSET 0`)).
		WithArgs(`%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows(postColumns))

	_, err := repo.List(context.Background(), ListFilter{Keywords: "50%_off"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_List_Errors(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	_, err := repo.List(context.Background(), ListFilter{Offset: -1})
	assert.Error(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM posts`)).
		WillReturnError(errors.New("connection reset"))

	_, err = repo.List(context.Background(), ListFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectQuery("^" + regexp.QuoteMeta(`SELECT * FROM posts WHERE post_id = $1`) + "$").
			WithArgs(int64(5)).
			WillReturnRows(postRow(sqlmock.NewRows(postColumns), 5, "Hello", "draft"))

		post, err := repo.GetByID(context.Background(), 5)
		require.NoError(t, err)
		require.NotNil(t, post)
		assert.Equal(t, int64(5), post.ID)
		assert.Equal(t, "draft", post.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM posts WHERE post_id = $1`)).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(postColumns))

		post, err := repo.GetByID(context.Background(), 99)
		require.NoError(t, err)
		assert.Nil(t, post)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	post := &models.Post{
		UserID:      7,
		Title:       "Title",
		Content:     "Body",
		Status:      "published",
		Likes:       0,
		Category:    "tech",
		CreatedAt:   now,
		UpdatedAt:   now,
		PublishedAt: &now,
	}

	mock.ExpectQuery("^" + regexp.QuoteMeta(`INSERT INTO posts (user_id,title,content,status,likes,category,created_at,updated_at,published_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING post_id`) + "$").
		WithArgs(int64(7), "Title", "Body", "published", int64(0), "tech", now, now, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow(42))

	err := repo.Create(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, int64(42), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Update(t *testing.T) {
	t.Run("writes only the given columns", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectExec("^" + regexp.QuoteMeta(`UPDATE posts SET category = $1, likes = $2 WHERE post_id = $3`) + "$").
			WithArgs("news", int64(12), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		found, err := repo.Update(context.Background(), 3, map[string]any{"likes": int64(12), "category": "news"})
		require.NoError(t, err)
		assert.True(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET title = $1 WHERE post_id = $2`)).
			WithArgs("New", int64(404)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		found, err := repo.Update(context.Background(), 404, map[string]any{"title": "New"})
		require.NoError(t, err)
		assert.False(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown columns", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		_, err := repo.Update(context.Background(), 1, map[string]any{"post_id": int64(2)})
		assert.Error(t, err)

		_, err = repo.Update(context.Background(), 1, map[string]any{})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec("^" + regexp.QuoteMeta(`DELETE FROM posts WHERE post_id = $1`) + "$").
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts WHERE post_id = $1`)).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	found, err := repo.Delete(context.Background(), 8)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.Delete(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_KeepsSQLState(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET title = $1 WHERE post_id = $2`)).
		WithArgs("x", int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23514", Message: "check constraint violated"})

	_, err := repo.Update(context.Background(), 1, map[string]any{"title": "x"})
	require.Error(t, err)
	assert.Equal(t, "23514", SQLState(err))
	assert.Empty(t, SQLState(errors.New("plain")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

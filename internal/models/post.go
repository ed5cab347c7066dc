// Package models contains data structures for the application's domain models.
package models

import "time"

// StatusPublished is the only status value with an effect: it stamps PublishedAt.
const StatusPublished = "published"

// Post represents a row of the posts table.
type Post struct {
	ID          int64      `gorm:"column:post_id;primaryKey" json:"post_id"`
	UserID      int64      `gorm:"column:user_id" json:"user_id"`
	Title       string     `gorm:"column:title" json:"title"`
	Content     string     `gorm:"column:content" json:"content"`
	Status      string     `gorm:"column:status" json:"status"`
	Likes       int64      `gorm:"column:likes" json:"likes"`
	Category    string     `gorm:"column:category" json:"category"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string {
	return "posts"
}

// PublishedAtFor returns now when status is "published" and nil otherwise.
func PublishedAtFor(status string, now time.Time) *time.Time {
	if status != StatusPublished {
		return nil
	}
	return &now
}

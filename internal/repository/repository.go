// Package repository implements the data access layer for the application.
// The GORM implementations in this package back the PostgreSQL and SQLite
// drivers; the mongostore subpackage provides the same contracts on MongoDB.
package repository

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"arcade/internal/models"
	"arcade/internal/relation"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// GetByID returns the user with favorites loaded, or a NotFound error.
	GetByID(ctx context.Context, id models.ID) (*models.User, error)
	// GetByEmail returns nil, nil when no user has email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByUsername returns nil, nil when no user has username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetSummaries resolves public author projections for ids. Unknown ids are absent.
	GetSummaries(ctx context.Context, ids []models.ID) (map[models.ID]models.Author, error)
	Create(ctx context.Context, user *models.User) error
	// Update persists the user's scalar fields. Favorites are managed through Favorites.
	Update(ctx context.Context, user *models.User) error
	// Delete removes the user together with their posts, favorites, likes and comments.
	Delete(ctx context.Context, id models.ID) error
	// Favorites is the user's ordered favorite game set keyed by game id.
	Favorites() relation.Collection[models.FavoriteGame]
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// GetByID returns the post with likes and comments loaded, or a NotFound error.
	GetByID(ctx context.Context, id models.ID) (*models.Post, error)
	// List returns posts newest first, optionally restricted to one forum.
	List(ctx context.Context, forum *models.Forum) ([]models.Post, error)
	Delete(ctx context.Context, id models.ID) error
	// Likes is the post's ordered set of liking user ids.
	Likes() relation.Collection[models.ID]
}

// CommentRepository defines persistence operations for comments on a post.
type CommentRepository interface {
	// Add prepends comment to the post's list. Missing posts yield NotFound.
	Add(ctx context.Context, postID models.ID, comment *models.Comment) error
	// Get returns the comment, or NotFound when the post has no such comment.
	Get(ctx context.Context, postID, commentID models.ID) (*models.Comment, error)
	// Remove deletes the comment and reports whether it existed.
	Remove(ctx context.Context, postID, commentID models.ID) (bool, error)
	// List returns the post's comments newest first.
	List(ctx context.Context, postID models.ID) ([]models.Comment, error)
}

// Error messages shared by both storage backends.
const (
	MsgUserNotFound    = "User not found"
	MsgPostNotFound    = "Post not found"
	MsgCommentNotFound = "Comment not found"
	MsgUsernameTaken   = "Username already taken"
	MsgUserExists      = "User already exists"
)

var lastPosition atomic.Int64

// NextPosition returns a strictly increasing ordering key. Members with a
// higher position sort first.
func NextPosition() int64 {
	for {
		now := time.Now().UnixNano()
		last := lastPosition.Load()
		if now <= last {
			now = last + 1
		}
		if lastPosition.CompareAndSwap(last, now) {
			return now
		}
	}
}

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key") || strings.Contains(msg, "23503")
}

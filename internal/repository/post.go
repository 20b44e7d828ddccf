package repository

import (
	"context"
	"errors"

	"arcade/internal/models"
	"arcade/internal/relation"

	"gorm.io/gorm"
)

// postRepository implements PostRepository
type postRepository struct {
	db    *gorm.DB
	likes *likeCollection
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, likes: &likeCollection{db: db}}
}

func (r *postRepository) Likes() relation.Collection[models.ID] {
	return r.likes
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = models.NewID()
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isForeignKeyError(err) {
			return models.NewNotFoundError(MsgUserNotFound)
		}
		return models.NewInternalError(err)
	}
	if post.Likes == nil {
		post.Likes = []models.ID{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id models.ID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(MsgPostNotFound)
		}
		return nil, models.NewInternalError(err)
	}

	posts := []models.Post{post}
	if err := r.hydrate(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (r *postRepository) List(ctx context.Context, forum *models.Forum) ([]models.Post, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id")
	if forum != nil {
		query = query.Where("forum = ?", *forum)
	}

	posts := []models.Post{}
	if err := query.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.hydrate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// hydrate loads likes and comments for posts with one query each.
func (r *postRepository) hydrate(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]models.ID, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	var likes []models.Like
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("position DESC").
		Find(&likes).Error; err != nil {
		return models.NewInternalError(err)
	}

	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("position DESC").
		Find(&comments).Error; err != nil {
		return models.NewInternalError(err)
	}

	likesByPost := make(map[models.ID][]models.ID, len(posts))
	for _, l := range likes {
		likesByPost[l.PostID] = append(likesByPost[l.PostID], l.UserID)
	}
	commentsByPost := make(map[models.ID][]models.Comment, len(posts))
	for _, c := range comments {
		commentsByPost[c.PostID] = append(commentsByPost[c.PostID], c)
	}

	for i := range posts {
		posts[i].Likes = likesByPost[posts[i].ID]
		if posts[i].Likes == nil {
			posts[i].Likes = []models.ID{}
		}
		posts[i].Comments = commentsByPost[posts[i].ID]
		if posts[i].Comments == nil {
			posts[i].Comments = []models.Comment{}
		}
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id models.ID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError(MsgPostNotFound)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

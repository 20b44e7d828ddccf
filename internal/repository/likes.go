package repository

import (
	"context"

	"arcade/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeCollection stores likes as (post_id, user_id) rows; the primary key
// rejects a second like from the same user.
type likeCollection struct {
	db *gorm.DB
}

func (l *likeCollection) List(ctx context.Context, postID models.ID) ([]models.ID, error) {
	userIDs := []models.ID{}
	if err := l.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ?", postID).
		Order("position DESC").
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return userIDs, nil
}

func (l *likeCollection) AddFront(ctx context.Context, postID models.ID, userID models.ID) (bool, error) {
	like := models.Like{PostID: postID, UserID: userID, Position: NextPosition()}

	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if res.Error != nil {
		if isForeignKeyError(res.Error) {
			return false, models.NewNotFoundError(MsgPostNotFound)
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (l *likeCollection) Remove(ctx context.Context, postID models.ID, userID string) (bool, error) {
	res := l.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

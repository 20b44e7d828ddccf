package repository

import (
	"context"

	"arcade/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// favoriteCollection stores favorites as (user_id, game_id) rows. The
// composite primary key makes AddFront an atomic insert-if-absent.
type favoriteCollection struct {
	db *gorm.DB
}

func (f *favoriteCollection) List(ctx context.Context, userID models.ID) ([]models.FavoriteGame, error) {
	favorites := []models.FavoriteGame{}
	if err := f.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position DESC").
		Find(&favorites).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return favorites, nil
}

func (f *favoriteCollection) AddFront(ctx context.Context, userID models.ID, game models.FavoriteGame) (bool, error) {
	game.UserID = userID
	game.Position = NextPosition()

	res := f.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&game)
	if res.Error != nil {
		if isForeignKeyError(res.Error) {
			return false, models.NewNotFoundError(MsgUserNotFound)
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (f *favoriteCollection) Remove(ctx context.Context, userID models.ID, gameID string) (bool, error) {
	res := f.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ?", userID, gameID).
		Delete(&models.FavoriteGame{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

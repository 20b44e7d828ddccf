package repository

import (
	"context"
	"errors"

	"arcade/internal/cache"
	"arcade/internal/models"
	"arcade/internal/relation"

	"gorm.io/gorm"
)

type userRepository struct {
	db        *gorm.DB
	favorites *favoriteCollection
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, favorites: &favoriteCollection{db: db}}
}

func (r *userRepository) Favorites() relation.Collection[models.FavoriteGame] {
	return r.favorites
}

func (r *userRepository) GetByID(ctx context.Context, id models.ID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(MsgUserNotFound)
		}
		return nil, models.NewInternalError(err)
	}

	favorites, err := r.favorites.List(ctx, id)
	if err != nil {
		return nil, err
	}
	user.FavoriteGames = favorites
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", NormalizeEmail(email))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetSummaries(ctx context.Context, ids []models.ID) (map[models.ID]models.Author, error) {
	out := make(map[models.ID]models.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).
		Select("id", "username", "avatar").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	return out, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	if user.ID.IsZero() {
		user.ID = models.NewID()
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			// A concurrent registration won the race; report which field collided.
			if existing, lookupErr := r.GetByEmail(ctx, user.Email); lookupErr == nil && existing != nil {
				return models.NewConflictError(MsgUserExists)
			}
			return models.NewConflictError(MsgUsernameTaken)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Model(user).
		Select("username", "bio", "password", "avatar", "avatar_color", "updated_at").
		Updates(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(MsgUsernameTaken)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateAuthor(ctx, user.ID)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id models.ID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownPosts := tx.Model(&models.Post{}).Select("id").Where("user_id = ?", id)

		if err := tx.Where("post_id IN (?)", ownPosts).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id IN (?)", ownPosts).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.FavoriteGame{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.User{}).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateAuthor(ctx, id)
	return nil
}

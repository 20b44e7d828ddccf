package database

import "arcade/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.FavoriteGame{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
	}
}

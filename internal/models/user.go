// Package models contains data structures for the application's domain models.
package models

import "time"

// Profile defaults applied when a user registers.
const (
	DefaultBio         = "No bio provided."
	DefaultAvatarColor = "#5865F2"
)

// User represents a community member.
type User struct {
	ID            ID             `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Username      string         `gorm:"uniqueIndex;not null" json:"username" bson:"username"`
	Email         string         `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	Password      string         `gorm:"not null" json:"-" bson:"password"`
	Bio           string         `gorm:"not null" json:"bio" bson:"bio"`
	Avatar        *string        `json:"avatar" bson:"avatar"`
	AvatarColor   string         `gorm:"not null" json:"avatarColor" bson:"avatarColor"`
	FavoriteGames []FavoriteGame `gorm:"-" json:"favoriteGames" bson:"favoriteGames"`
	CreatedAt     time.Time      `json:"date" bson:"date"`
	UpdatedAt     time.Time      `json:"-" bson:"updatedAt"`
}

// FavoriteGame is one entry of a user's favorites list, keyed by the
// catalog's game id. Position orders the list, highest first.
type FavoriteGame struct {
	UserID   ID      `gorm:"primaryKey;type:varchar(36)" json:"-" bson:"-"`
	GameID   string  `gorm:"primaryKey" json:"gameId" bson:"gameId"`
	Name     string  `gorm:"not null" json:"name" bson:"name"`
	ImageURL string  `json:"imageUrl" bson:"imageUrl"`
	Rating   float64 `json:"rating" bson:"rating"`
	Position int64   `gorm:"not null;index" json:"-" bson:"-"`
}

// Author is the public projection of a user embedded in posts and comments.
type Author struct {
	ID       ID      `json:"id"`
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
}

// Summary returns the public projection of u.
func (u *User) Summary() Author {
	return Author{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

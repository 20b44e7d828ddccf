package models

import "time"

// Post is a forum entry with its likes and comments.
type Post struct {
	ID        ID        `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	UserID    ID        `gorm:"type:varchar(36);not null;index" json:"-" bson:"user"`
	Author    *Author   `gorm:"-" json:"user" bson:"-"`
	Content   string    `gorm:"type:text;not null" json:"content" bson:"content"`
	Forum     Forum     `gorm:"not null;index" json:"forum" bson:"forum"`
	Likes     []ID      `gorm:"-" json:"likes" bson:"likes"`
	Comments  []Comment `gorm:"-" json:"comments" bson:"comments"`
	CreatedAt time.Time `gorm:"index" json:"date" bson:"date"`
}

// Like records one user's like on a post. The (PostID, UserID) pair is the
// primary key, so a user can like a post at most once.
type Like struct {
	PostID   ID    `gorm:"primaryKey;type:varchar(36)"`
	UserID   ID    `gorm:"primaryKey;type:varchar(36);index"`
	Position int64 `gorm:"not null"`
}

// TableName pins the likes table name.
func (Like) TableName() string { return "post_likes" }

// Comment is a reply attached to a post.
type Comment struct {
	ID        ID        `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	PostID    ID        `gorm:"type:varchar(36);not null;index" json:"-" bson:"-"`
	UserID    ID        `gorm:"type:varchar(36);not null;index" json:"-" bson:"user"`
	Author    *Author   `gorm:"-" json:"user" bson:"-"`
	Content   string    `gorm:"type:text;not null" json:"content" bson:"content"`
	Position  int64     `gorm:"not null" json:"-" bson:"-"`
	CreatedAt time.Time `json:"date" bson:"date"`
}

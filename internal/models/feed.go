package models

// Feed event types pushed to live feed subscribers.
const (
	EventPostCreated         = "post_created"
	EventPostDeleted         = "post_deleted"
	EventPostLikesUpdated    = "post_likes_updated"
	EventPostCommentsUpdated = "post_comments_updated"
)

// FeedEvent is the envelope written to the feed channel and to WebSocket clients.
type FeedEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// LikesUpdate is the payload of EventPostLikesUpdated.
type LikesUpdate struct {
	PostID ID   `json:"postId"`
	Likes  []ID `json:"likes"`
}

// CommentsUpdate is the payload of EventPostCommentsUpdated.
type CommentsUpdate struct {
	PostID   ID        `json:"postId"`
	Comments []Comment `json:"comments"`
}

// PostRef is the payload of EventPostDeleted.
type PostRef struct {
	PostID ID `json:"postId"`
}

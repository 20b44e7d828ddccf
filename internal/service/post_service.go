package service

import (
	"context"
	"strings"

	"arcade/internal/cache"
	"arcade/internal/middleware"
	"arcade/internal/models"
	"arcade/internal/relation"
	"arcade/internal/repository"
)

const (
	MsgPostContentRequired    = "Post content is required"
	MsgCommentContentRequired = "Comment content is required"
	MsgNotAuthorized          = "User not authorized"
	MsgPostRemoved            = "Post removed"
)

// FeedPublisher delivers feed events to live subscribers.
type FeedPublisher interface {
	PublishFeed(ctx context.Context, event models.FeedEvent)
}

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	likes       *relation.Engine[models.ID]
	events      FeedPublisher
}

type CreatePostInput struct {
	UserID  models.ID
	Content string
	Forum   string
}

type AddCommentInput struct {
	UserID  models.ID
	PostID  models.ID
	Content string
}

type DeleteCommentInput struct {
	UserID    models.ID
	PostID    models.ID
	CommentID models.ID
}

// NewPostService wires the post aggregate. events may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	events FeedPublisher,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		likes:       relation.NewEngine("likes", postRepo.Likes(), models.ID.String),
		events:      events,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError(MsgPostContentRequired)
	}
	forum, err := models.ParseForum(in.Forum)
	if err != nil {
		return nil, err
	}

	authors, err := s.authors(ctx, []models.ID{in.UserID})
	if err != nil {
		return nil, err
	}
	author, ok := authors[in.UserID]
	if !ok {
		return nil, models.NewNotFoundError(repository.MsgUserNotFound)
	}

	post := &models.Post{
		UserID:   in.UserID,
		Content:  content,
		Forum:    forum,
		Likes:    []models.ID{},
		Comments: []models.Comment{},
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = &author

	s.publish(ctx, models.EventPostCreated, post)
	return post, nil
}

// ListPosts returns posts newest first. An empty or "All" forum lists every
// post.
func (s *PostService) ListPosts(ctx context.Context, forum string) ([]models.Post, error) {
	filter, err := models.ParseForumFilter(forum)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.resolvePosts(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id models.ID) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	posts := []models.Post{*post}
	if err := s.resolvePosts(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// DeletePost removes a post owned by userID.
func (s *PostService) DeletePost(ctx context.Context, userID, postID models.ID) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if !post.UserID.Equal(userID) {
		return models.NewForbiddenError(MsgNotAuthorized)
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	s.publish(ctx, models.EventPostDeleted, models.PostRef{PostID: postID})
	return nil
}

// ToggleLike flips the caller's like on the post and returns the likes,
// most recent first.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID models.ID) ([]models.ID, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	res, err := s.likes.Toggle(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventPostLikesUpdated, models.LikesUpdate{PostID: postID, Likes: res.Members})
	return res.Members, nil
}

// AddComment prepends a comment and returns the post's comments with
// authors resolved.
func (s *PostService) AddComment(ctx context.Context, in AddCommentInput) ([]models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError(MsgCommentContentRequired)
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	comment := &models.Comment{UserID: in.UserID, Content: content}
	if err := s.commentRepo.Add(ctx, in.PostID, comment); err != nil {
		return nil, err
	}
	return s.commentsChanged(ctx, in.PostID)
}

// DeleteComment removes a comment written by the caller. On any failure the
// comment list is left unchanged.
func (s *PostService) DeleteComment(ctx context.Context, in DeleteCommentInput) ([]models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.Get(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	if !comment.UserID.Equal(in.UserID) {
		return nil, models.NewForbiddenError(MsgNotAuthorized)
	}

	removed, err := s.commentRepo.Remove(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.NewNotFoundError(repository.MsgCommentNotFound)
	}
	return s.commentsChanged(ctx, in.PostID)
}

func (s *PostService) commentsChanged(ctx context.Context, postID models.ID) ([]models.Comment, error) {
	comments, err := s.commentRepo.List(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.resolveComments(ctx, comments); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventPostCommentsUpdated, models.CommentsUpdate{PostID: postID, Comments: comments})
	return comments, nil
}

func (s *PostService) resolvePosts(ctx context.Context, posts []models.Post) error {
	var ids []models.ID
	for i := range posts {
		ids = append(ids, posts[i].UserID)
		for j := range posts[i].Comments {
			ids = append(ids, posts[i].Comments[j].UserID)
		}
	}
	authors, err := s.authors(ctx, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].Author = lookupAuthor(authors, posts[i].UserID)
		for j := range posts[i].Comments {
			posts[i].Comments[j].Author = lookupAuthor(authors, posts[i].Comments[j].UserID)
		}
	}
	return nil
}

func (s *PostService) resolveComments(ctx context.Context, comments []models.Comment) error {
	ids := make([]models.ID, len(comments))
	for i := range comments {
		ids[i] = comments[i].UserID
	}
	authors, err := s.authors(ctx, ids)
	if err != nil {
		return err
	}
	for i := range comments {
		comments[i].Author = lookupAuthor(authors, comments[i].UserID)
	}
	return nil
}

// authors resolves author summaries through the cache, loading misses from
// the user store in one query.
func (s *PostService) authors(ctx context.Context, ids []models.ID) (map[models.ID]models.Author, error) {
	unique := make([]models.ID, 0, len(ids))
	seen := make(map[models.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	keys := make([]string, len(unique))
	for i, id := range unique {
		keys[i] = cache.AuthorKey(id)
	}
	cached := cache.GetMany[models.Author](ctx, keys)

	out := make(map[models.ID]models.Author, len(unique))
	var missing []models.ID
	for i, id := range unique {
		if a, ok := cached[keys[i]]; ok {
			out[id] = a
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.userRepo.GetSummaries(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, a := range fetched {
		out[id] = a
		cache.Set(ctx, cache.AuthorKey(id), a, cache.AuthorTTL)
	}
	return out, nil
}

func lookupAuthor(authors map[models.ID]models.Author, id models.ID) *models.Author {
	a, ok := authors[id]
	if !ok {
		return nil
	}
	return &a
}

func (s *PostService) publish(ctx context.Context, eventType string, payload any) {
	if s.events == nil {
		return
	}
	s.events.PublishFeed(ctx, models.FeedEvent{Type: eventType, Payload: payload})
	middleware.Logger.DebugContext(ctx, "feed event published", "type", eventType)
}

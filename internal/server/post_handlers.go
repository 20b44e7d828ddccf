package server

import (
	"arcade/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content *string `json:"content"`
	Forum   *string `json:"forum"`
}

type addCommentRequest struct {
	Content *string `json:"content"`
}

// GetPosts handles GET /posts?forum=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postSvc.ListPosts(c.UserContext(), c.Query("forum"))
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	post, err := s.postSvc.GetPost(c.UserContext(), id)
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postSvc.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:  currentUserID(c),
		Content: deref(req.Content),
		Forum:   deref(req.Forum),
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	if err := s.postSvc.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(MessageResponse{Msg: service.MsgPostRemoved})
}

// ToggleLike handles PUT /posts/like/:id
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	likes, err := s.postSvc.ToggleLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(likes)
}

// AddComment handles POST /posts/comment/:id
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}
	var req addCommentRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comments, err := s.postSvc.AddComment(c.UserContext(), service.AddCommentInput{
		UserID:  currentUserID(c),
		PostID:  id,
		Content: deref(req.Content),
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(comments)
}

// DeleteComment handles DELETE /posts/comment/:id/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId", "comment ID")
	if err != nil {
		return nil
	}

	comments, err := s.postSvc.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		PostID:    postID,
		CommentID: commentID,
	})
	if err != nil {
		return s.respondWithError(c, err)
	}
	return c.JSON(comments)
}

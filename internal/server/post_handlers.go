package server

import (
	"kindred/internal/models"
	"kindred/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListFeed handles GET /api/feed?author=&limit=&cursor=
func (s *Server) ListFeed(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}

	feed, err := s.feed.ListFeed(c.UserContext(), service.FeedInput{
		ViewerID: caller(c),
		AuthorID: c.Query("author"),
		Page:     page,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(feed)
}

type createPostRequest struct {
	Content    string            `json:"content"`
	Visibility models.Visibility `json:"visibility"`
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := s.feed.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID:   caller(c),
		Content:    req.Content,
		Visibility: req.Visibility,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:postId
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.feed.GetPost(c.UserContext(), c.Params("postId"), caller(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

type createCommentRequest struct {
	Content         string `json:"content"`
	ParentCommentID string `json:"parent_comment_id"`
}

// CreateComment handles POST /api/posts/:postId/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	comment, err := s.feed.CreateComment(c.UserContext(), service.CreateCommentInput{
		AuthorID:        caller(c),
		PostID:          c.Params("postId"),
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:commentId
// DeletePost handles DELETE /api/posts/:postId
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.feed.DeletePost(c.UserContext(), c.Params("postId"), caller(c)); err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

// UpdateComment handles PATCH /api/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	var req updateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	comment, err := s.feed.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		ActorID:   caller(c),
		CommentID: c.Params("commentId"),
		Content:   req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

func (s *Server) DeleteComment(c *fiber.Ctx) error {
	if err := s.feed.DeleteComment(c.UserContext(), c.Params("commentId"), caller(c)); err != nil {
		return respondError(c, err)
	}
	return noContent(c)
}

func (s *Server) thread(c *fiber.Ctx, subjectParam string) (service.ThreadInput, error) {
	page, err := parsePage(c)
	if err != nil {
		return service.ThreadInput{}, err
	}
	return service.ThreadInput{ViewerID: caller(c), SubjectID: c.Params(subjectParam), Page: page}, nil
}

// ListComments handles GET /api/posts/:postId/comments
func (s *Server) ListComments(c *fiber.Ctx) error {
	in, err := s.thread(c, "postId")
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.feed.ListComments(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ListReplies handles GET /api/comments/:commentId/replies
func (s *Server) ListReplies(c *fiber.Ctx) error {
	in, err := s.thread(c, "commentId")
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.feed.ListReplies(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

type reactRequest struct {
	Type models.ReactionType `json:"type"`
}

// react toggles the caller's reaction. An empty body means LIKE.
func (s *Server) react(c *fiber.Ctx, kind models.SubjectKind, param string) error {
	var req reactRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
	}

	result, err := s.reactions.React(c.UserContext(), service.ReactInput{
		ActorID:   caller(c),
		Kind:      kind,
		SubjectID: c.Params(param),
		Type:      req.Type,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ReactToPost handles POST /api/posts/:postId/react
func (s *Server) ReactToPost(c *fiber.Ctx) error {
	return s.react(c, models.SubjectPost, "postId")
}

// ReactToComment handles POST /api/comments/:commentId/react
func (s *Server) ReactToComment(c *fiber.Ctx) error {
	return s.react(c, models.SubjectComment, "commentId")
}

func (s *Server) removeReaction(c *fiber.Ctx, kind models.SubjectKind, param string) error {
	result, err := s.reactions.RemoveReaction(c.UserContext(), service.ReactInput{
		ActorID:   caller(c),
		Kind:      kind,
		SubjectID: c.Params(param),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// RemovePostReaction handles DELETE /api/posts/:postId/react
func (s *Server) RemovePostReaction(c *fiber.Ctx) error {
	return s.removeReaction(c, models.SubjectPost, "postId")
}

// RemoveCommentReaction handles DELETE /api/comments/:commentId/react
func (s *Server) RemoveCommentReaction(c *fiber.Ctx) error {
	return s.removeReaction(c, models.SubjectComment, "commentId")
}

// MyPostReaction handles GET /api/posts/:postId/react
func (s *Server) MyPostReaction(c *fiber.Ctx) error {
	result, err := s.reactions.MyReaction(c.UserContext(), service.ReactInput{
		ActorID:   caller(c),
		Kind:      models.SubjectPost,
		SubjectID: c.Params("postId"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

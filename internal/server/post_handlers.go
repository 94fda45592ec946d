package server

import (
	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body of POST /api/posts.
type CreatePostRequest struct {
	SideA        string   `json:"side_a"`
	SideB        string   `json:"side_b"`
	Category     string   `json:"category"`
	Lat          *float64 `json:"lat"`
	Long         *float64 `json:"long"`
	LocationName *string  `json:"location_name"`
	Description  *string  `json:"description"`
}

// VoteRequest is the body of POST /api/posts/:id/vote.
type VoteRequest struct {
	Value *int `json:"value"`
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} models.FeedPost
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:       userID,
		SideA:        req.SideA,
		SideB:        req.SideB,
		Category:     req.Category,
		Lat:          req.Lat,
		Long:         req.Long,
		LocationName: req.LocationName,
		Description:  req.Description,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post with its vote statistics
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.FeedPost
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), viewer(c), postID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// SubmitVote handles POST /api/posts/:id/vote
// @Summary Cast or replace the viewer's vote
// @Description Upserts the vote and returns statistics recomputed from every vote on the post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body VoteRequest true "Vote value in [-100, 100]"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/vote [post]
func (s *Server) SubmitVote(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	postID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req VoteRequest
	if err := c.BodyParser(&req); err != nil || req.Value == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	st, err := s.voteService.Submit(c.UserContext(), userID, postID, *req.Value)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   st,
	})
}

package server

import (
	"bytes"
	"encoding/json"

	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest is the body of PUT /api/profile. An absent interests
// field leaves the list untouched; an explicit null resets it to every
// category.
type UpdateProfileRequest struct {
	Interests   json.RawMessage `json:"interests" swaggertype:"array,string"`
	LocalRadius *int            `json:"local_radius"`
}

// GetProfile handles GET /api/profile
// @Summary Get the viewer's profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	profile, err := s.profileService.GetProfile(c.UserContext(), userID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile handles PUT /api/profile
// @Summary Update the viewer's interests and local radius
// @Tags profile
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile patch"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var req UpdateProfileRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	patch := models.ProfilePatch{LocalRadius: req.LocalRadius}
	switch {
	case req.Interests == nil:
	case bytes.Equal(bytes.TrimSpace(req.Interests), []byte("null")):
		patch.ResetInterests = true
	default:
		var interests []models.Category
		if err := json.Unmarshal(req.Interests, &interests); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("interests must be a list of categories"))
		}
		if interests == nil {
			interests = []models.Category{}
		}
		patch.Interests = &interests
	}

	profile, err := s.profileService.UpdateProfile(c.UserContext(), userID, patch)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

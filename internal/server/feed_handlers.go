package server

import (
	"github.com/digitalmaniak/sidewidth/internal/feed"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
// @Summary Get a feed page
// @Description Global or local feed under one of four sort policies, filtered by the viewer's interests
// @Tags feed
// @Produce json
// @Param type query string false "global or local" default(global)
// @Param sort query string false "latest, trending, divided or consensus" default(latest)
// @Param page query int false "1-based page" default(1)
// @Param lat query number false "Latitude, required for the local feed"
// @Param long query number false "Longitude, required for the local feed"
// @Param radius query number false "Radius in km, defaults to the profile radius"
// @Success 200 {object} feed.Page
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	req, err := parseFeedRequest(c)
	if err != nil {
		return models.Respond(c, err)
	}

	page, err := s.feedService.Page(c.UserContext(), viewer(c), req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(page)
}

func parseFeedRequest(c *fiber.Ctx) (feed.Request, error) {
	feedType, err := feed.ParseType(c.Query("type"))
	if err != nil {
		return feed.Request{}, err
	}
	sort, err := feed.ParseSort(c.Query("sort"))
	if err != nil {
		return feed.Request{}, err
	}
	req := feed.Request{
		Type: feedType,
		Sort: sort,
		Page: c.QueryInt("page", 1),
	}
	if req.Lat, err = queryFloat(c, "lat"); err != nil {
		return feed.Request{}, err
	}
	if req.Long, err = queryFloat(c, "long"); err != nil {
		return feed.Request{}, err
	}
	if req.RadiusKm, err = queryFloat(c, "radius"); err != nil {
		return feed.Request{}, err
	}
	return req, nil
}

// GetCategories handles GET /api/categories
// @Summary List post categories
// @Tags feed
// @Produce json
// @Success 200 {array} string
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	return c.JSON(models.Categories)
}

package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// addLocationRequest mirrors the add-location form: every field is the raw
// text the user typed.
type addLocationRequest struct {
	Name      string `json:"name"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type addLocationResponse struct {
	Point   *domain.Point `json:"point"`
	Message string        `json:"message"`
}

type weightsResponse struct {
	Origin     domain.GeoPoint `json:"origin"`
	Candidates []domain.Point  `json:"candidates"`
}

// ListCandidatesHandler returns the candidate set, paginated.
func ListCandidatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		points, err := deps.Destinations.ListCandidates(c.UserContext())
		if err != nil {
			return errDomain(c, err)
		}

		offset, limit := pageParams(c)
		page, pg := paginate(points, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// AddCandidateHandler validates and appends a new candidate.
func AddCandidateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req addLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		p, msg, err := deps.Destinations.AddLocation(c.UserContext(), req.Name, req.Latitude, req.Longitude)
		if err != nil {
			return errDomain(c, err)
		}

		c.Location("/v1/candidates/" + p.ID)
		return c.Status(fiber.StatusCreated).JSON(addLocationResponse{Point: p, Message: msg})
	}
}

// CandidateWeightsHandler returns every candidate weighted against the
// current position, without drawing.
func CandidateWeightsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		points, origin, err := deps.Destinations.Weights(c.UserContext())
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(weightsResponse{Origin: origin, Candidates: points})
	}
}

// NearbyCandidatesHandler returns candidates within radius_km of the current
// position, closest first.
func NearbyCandidatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		radius := c.QueryFloat("radius_km", 5)
		if radius <= 0 || radius > 20000 {
			return errBadRequest(c, "radius_km must be between 0 and 20000")
		}

		points, err := deps.Destinations.Nearby(c.UserContext(), radius)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(points)
	}
}

// RequestSelectionHandler draws the next destination.
func RequestSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sel, err := deps.Destinations.RequestSelection(c.UserContext())
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(sel)
	}
}

// StateHandler returns the current state snapshot for polling clients.
func StateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v := deps.State.View()
		if !v.UpdatedAt.IsZero() {
			c.Set(fiber.HeaderLastModified, v.UpdatedAt.UTC().Format(time.RFC1123))
		}
		return c.JSON(v)
	}
}

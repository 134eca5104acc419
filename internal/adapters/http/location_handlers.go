package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

type authorizationRequest struct {
	Decision string `json:"decision"`
}

type fixRequest struct {
	Lat  *float64  `json:"lat"`
	Lon  *float64  `json:"lon"`
	Time time.Time `json:"time"`
}

type failureRequest struct {
	Reason string `json:"reason"`
}

// RequestLocationHandler asks for permission to use the device location.
func RequestLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Location.RequestAuthorization(c.UserContext()))
	}
}

// AuthorizeLocationHandler applies the platform's permission decision.
func AuthorizeLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req authorizationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		snap, err := deps.Location.Authorize(c.UserContext(), req.Decision)
		if err != nil {
			return errDomain(c, err)
		}
		return c.JSON(snap)
	}
}

// ReportFixHandler records a location fix.
func ReportFixHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req fixRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == nil || req.Lon == nil {
			return errBadRequest(c, "lat and lon are required")
		}

		snap, err := deps.Location.ReportFix(c.UserContext(), domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}, req.Time)
		if err != nil {
			return errDomain(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(snap)
	}
}

// ReportFailureHandler records that the device could not produce a fix.
func ReportFailureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req failureRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return c.Status(fiber.StatusAccepted).JSON(deps.Location.ReportFailure(c.UserContext(), req.Reason))
	}
}

// LocationHandler returns the location status, message and last fix.
func LocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Location.Snapshot())
	}
}

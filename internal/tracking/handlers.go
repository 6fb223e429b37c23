package tracking

import (
	"errors"

	"backend-skitrack/internal/archive"
	"backend-skitrack/internal/auth"
	"backend-skitrack/internal/track"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		riderID := auth.RiderID(c)
		if riderID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "rider required")
		}
		sess, err := svc.StartSession(c.Context(), riderID)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	})

	r.Post("/sessions/:id/samples", authMiddleware, func(c *fiber.Ctx) error {
		if err := authorize(c, svc); err != nil {
			return err
		}
		var req SamplesRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if len(req.Samples) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "samples required")
		}
		resp, err := svc.PushSamples(c.Context(), c.Params("id"), req.Samples)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(resp)
	})

	r.Get("/sessions/:id/live", authMiddleware, func(c *fiber.Ctx) error {
		if err := authorize(c, svc); err != nil {
			return err
		}
		live, err := svc.Live(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(live)
	})

	r.Get("/sessions/:id/track", authMiddleware, func(c *fiber.Ctx) error {
		if err := authorize(c, svc); err != nil {
			return err
		}
		segs, err := svc.Track(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		body, err := track.FeatureCollection(segs).MarshalJSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Send(body)
	})

	r.Post("/sessions/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		if err := authorize(c, svc); err != nil {
			return err
		}
		rec, err := svc.StopSession(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(rec)
	})

	r.Get("/summaries", authMiddleware, func(c *fiber.Ctx) error {
		records, err := svc.RiderSummaries(c.Context(), auth.RiderID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(records)
	})

	r.Get("/summaries/:id", authMiddleware, func(c *fiber.Ctx) error {
		rec, err := svc.Summary(c.Context(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		if rec.RiderID != auth.RiderID(c) {
			return fiber.NewError(fiber.StatusNotFound, archive.ErrSummaryNotFound.Error())
		}
		return c.JSON(rec)
	})
}

// WatchAccess lets riders subscribe only to their own sessions. Sessions
// recorded on another instance are not known here and are allowed through.
func WatchAccess(svc *Service) func(c *fiber.Ctx, sessionID string) error {
	return func(c *fiber.Ctx, sessionID string) error {
		owner, err := svc.Owner(sessionID)
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return httpError(err)
		}
		if owner != auth.RiderID(c) {
			return httpError(ErrForbidden)
		}
		return nil
	}
}

func authorize(c *fiber.Ctx, svc *Service) error {
	owner, err := svc.Owner(c.Params("id"))
	if err != nil {
		return httpError(err)
	}
	if owner != auth.RiderID(c) {
		return httpError(ErrForbidden)
	}
	return nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, archive.ErrSummaryNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotRecording):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// Package api exposes the planning service and the websocket sessions over
// HTTP.
package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"

	"artillery-planner/ballistics"
	"artillery-planner/game"
	"artillery-planner/grid"
	"artillery-planner/service"
	"artillery-planner/session"
	"artillery-planner/store"
)

// CalculateRequest asks for one firing solution. Positions are world meters.
type CalculateRequest struct {
	Emitter  *grid.WorldPos   `json:"emitterPosition"`
	Target   *grid.WorldPos   `json:"targetPosition"`
	WeaponID string           `json:"weaponId"`
	Wind     *ballistics.Wind `json:"wind,omitempty"`
}

type TrackRequest struct {
	WeaponID string `json:"weaponId"`
}

type handler struct {
	svc *service.Service
	log zerolog.Logger
}

// New builds the application. sessions may be nil to serve the planning API
// alone.
func New(svc *service.Service, sessions *session.Manager, log zerolog.Logger) *fiber.App {
	h := &handler{svc: svc, log: log}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	r := app.Group("/api")
	r.Get("/catalog", h.catalog)
	r.Get("/maps", h.maps)
	r.Get("/weapons", h.weapons)
	r.Post("/calculate", h.calculate)
	r.Post("/plans", h.createPlan)
	r.Get("/plans/:id", h.fetchPlan)
	r.Post("/track/:kind", h.track)
	r.Get("/stats", h.stats)

	if sessions != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				c.Locals("allowed", true)
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})

		app.Post("/session", sessions.CreateSession)
		app.Get("/session/:id", sessions.GetSession)
		app.Get("/ws/:sessionId", websocket.New(sessions.HandleWS))
	}

	return app
}

// fail maps service errors to status codes.
func (h *handler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = fiber.StatusNotFound
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func (h *handler) catalog(c *fiber.Ctx) error {
	return c.JSON(h.svc.Catalog())
}

func (h *handler) maps(c *fiber.Ctx) error {
	activeOnly := false
	if v := c.Query("activeOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "activeOnly must be a boolean")
		}
		activeOnly = b
	}
	return c.JSON(h.svc.Maps(activeOnly))
}

func (h *handler) weapons(c *fiber.Ctx) error {
	ws, err := h.svc.Weapons(c.Query("faction"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ws)
}

func (h *handler) calculate(c *fiber.Ctx) error {
	var req CalculateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Emitter == nil || req.Target == nil {
		return badRequest(c, "emitterPosition and targetPosition are required")
	}
	sol, err := h.svc.Calculate(c.UserContext(), *req.Emitter, *req.Target, req.WeaponID, req.Wind)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sol)
}

func (h *handler) createPlan(c *fiber.Ctx) error {
	var req service.PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.CreatePlan(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *handler) fetchPlan(c *fiber.Ctx) error {
	p, err := h.svc.FetchPlan(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *handler) track(c *fiber.Ctx) error {
	kind, err := game.ParseKind(c.Params("kind"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req TrackRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	if err := h.svc.TrackPlacement(c.UserContext(), kind, req.WeaponID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) stats(c *fiber.Ctx) error {
	st, err := h.svc.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

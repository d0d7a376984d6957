// Package rpc exposes the pipeline's service boundaries over HTTP: fiber
// servers for the speech, conversation, and voice services, thin clients
// for calling them, and the gate that mutes capture during playback.
//
// Every reply carries a success flag. Transient collaborator failures are
// logged server-side and reported as success so the pipeline keeps moving;
// only malformed requests produce error statuses.
package rpc

import (
	"github.com/gofiber/fiber/v2"
)

// successReply is the common acknowledgement body.
type successReply struct {
	Success bool `json:"success"`
}

// NewApp creates a fiber app configured for a pipeline service. A health
// endpoint is registered so the gate's readiness probe has something cheap
// to hit.
func NewApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": name})
	})
	return app
}

func ok(c *fiber.Ctx) error {
	return c.JSON(successReply{Success: true})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

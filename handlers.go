package main

import (
	"bytes"
	"log"
	"strconv"
	"time"

	"github.com/Knuttatutta/mind-to-model/building"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(a *App, conv building.UnitConverter) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:      "mind-to-model",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	server.Use(recover.New())

	// Health check endpoint
	server.Get("/health", func(c fiber.Ctx) error {
		log.Printf("[HTTP] /health request from %s", c.IP())
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now(),
			"hasReport": a.Report != nil,
		})
	})

	// Last run report, same shape as the MQTT message
	server.Get("/report", func(c fiber.Ctx) error {
		if a.Report == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no build has run"})
		}
		body := fiber.Map{
			"report":  a.Report,
			"ok":      a.Report.OK(),
			"summary": a.Report.Summary(),
		}
		if a.Report.Err != nil {
			body["error"] = a.Report.Err.Error()
		}
		return c.JSON(body)
	})

	server.Get("/levels", func(c fiber.Ctx) error {
		levels, err := a.Doc.Levels()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if levels == nil {
			levels = []building.Level{}
		}
		return c.JSON(levels)
	})

	server.Get("/plan.svg", func(c fiber.Ctx) error {
		level, err := queryLevel(a, c)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := building.NewPlanRenderer(a.Doc, level).RenderToSVG(&buf); err != nil {
			log.Printf("Error rendering plan SVG: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set("Content-Type", "image/svg+xml")
		c.Set("Cache-Control", "no-cache")
		return c.Send(buf.Bytes())
	})

	server.Get("/plan.png", func(c fiber.Ctx) error {
		level, err := queryLevel(a, c)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := building.NewPlanRenderer(a.Doc, level).RenderToPNG(&buf); err != nil {
			log.Printf("Error rendering plan PNG: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set("Content-Type", "image/png")
		c.Set("Cache-Control", "no-cache")
		return c.Send(buf.Bytes())
	})

	server.Get("/plan.geojson", func(c fiber.Ctx) error {
		level, err := queryLevel(a, c)
		if err != nil {
			return err
		}
		fc, err := building.PlanFeatureCollection(a.Doc, level, conv)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set("Content-Type", "application/geo+json")
		return c.Send(data)
	})

	return server
}

// queryLevel resolves ?level=N (default 0) to a document level. Bad input
// becomes a fiber error carrying the status code.
func queryLevel(a *App, c fiber.Ctx) (building.Level, error) {
	n := 0
	if s := c.Query("level"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return building.Level{}, fiber.NewError(fiber.StatusBadRequest, "level must be an integer")
		}
		n = v
	}
	level, err := a.planLevel(n)
	if err != nil {
		return building.Level{}, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return level, nil
}

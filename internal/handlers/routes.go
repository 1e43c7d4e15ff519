package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Upload   *UploadHandler
	Evaluate *EvaluationHandler
	Result   *ResultHandler
}

// Register mounts the API on r.
func Register(r fiber.Router, h Handlers) {
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	r.Post("/upload", h.Upload.HandleUpload)
	r.Post("/evaluate", h.Evaluate.HandleEvaluate)
	r.Get("/result/:id", h.Result.HandleGetResult)
}

// ErrorHandler renders errors returned from handlers as {error, code}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

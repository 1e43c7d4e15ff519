package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/async-cv-evaluator/internal/models"
	"alfredoptarigan/async-cv-evaluator/internal/services"
)

type ResultHandler struct {
	evaluations services.EvaluationService
}

func NewResultHandler(evaluations services.EvaluationService) *ResultHandler {
	return &ResultHandler{evaluations: evaluations}
}

// HandleGetResult handles GET /result/:id
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	job, err := h.evaluations.Poll(c.Params("id"))
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Error: "Job not found",
			})
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to read job")
	}

	return c.JSON(job)
}

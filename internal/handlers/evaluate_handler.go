package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/async-cv-evaluator/internal/models"
	"alfredoptarigan/async-cv-evaluator/internal/services"
)

type EvaluationHandler struct {
	evaluations services.EvaluationService
}

func NewEvaluationHandler(evaluations services.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations}
}

// HandleEvaluate handles POST /evaluate
func (h *EvaluationHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request payload",
		})
	}

	job, err := h.evaluations.Submit(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: "Missing required fields",
			})
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create evaluation job")
	}

	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     job.ID,
		Status: string(job.Status),
	})
}

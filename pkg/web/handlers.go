package web

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/pumba68/qatering-sub001/pkg/journey"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

// Runner triggers one batch invocation. The run coordinator implements it;
// tests substitute a stub.
type Runner interface {
	Run(ctx context.Context) (*journey.RunResult, error)
}

type APIHandlers struct {
	persistence persistence.Persistence
	runner      Runner
	validator   *validator.Validate
	runSecret   string
	logger      *slog.Logger
}

func NewAPIHandlers(
	p persistence.Persistence,
	runner Runner,
	validator *validator.Validate,
	runSecret string,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		runner:      runner,
		validator:   validator,
		runSecret:   runSecret,
		logger:      logger,
	}
}

// RunJourneys triggers one batch invocation. The caller is either the
// external scheduler or an administrator, both bearing the shared secret.
func (h *APIHandlers) RunJourneys(c fiber.Ctx) error {
	if !h.authorized(c) {
		return unauthorized(c)
	}

	result, err := h.runner.Run(c.Context())
	if err != nil {
		h.logger.ErrorContext(c.Context(), "journey run failed", "error", err)

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(RunResponse{
		OK:        result.OK,
		Enrolled:  result.Enrolled,
		Processed: result.Processed,
		Errors:    result.Errors,
		Swept:     result.Swept,
		Timestamp: result.Timestamp,
	})
}

func (h *APIHandlers) authorized(c fiber.Ctx) bool {
	if h.runSecret == "" {
		return true
	}

	token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")

	return subtle.ConstantTimeCompare([]byte(token), []byte(h.runSecret)) == 1
}

func (h *APIHandlers) GetJourneys(c fiber.Ctx) error {
	journeys, err := h.persistence.JourneyRepository().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"journeys": journeys, "total_count": len(journeys)})
}

func (h *APIHandlers) GetJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	j, err := h.persistence.JourneyRepository().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Journey not found")
		}

		return internalError(c, err)
	}

	return c.JSON(j)
}

func (h *APIHandlers) CreateJourney(c fiber.Ctx) error {
	var req CreateJourneyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	j := req.Journey()
	if err := validateJourney(j); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.JourneyRepository().Save(c.Context(), j); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(j)
}

func (h *APIHandlers) DeleteJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	if err := h.persistence.JourneyRepository().Delete(c.Context(), id); err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Journey not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

// validateJourney enforces the semantic rules struct tags cannot express:
// node config schemas, graph shape, trigger settings, and re-entry policy.
func validateJourney(j *models.Journey) error {
	if err := models.ValidateContent(j.Content); err != nil {
		return err
	}

	if _, err := models.NewGraph(j.Content); err != nil {
		return err
	}

	if !j.ReEntryPolicy.Valid() {
		return fmt.Errorf("unsupported re-entry policy %q", j.ReEntryPolicy)
	}

	switch j.TriggerType {
	case models.TriggerTypeSegmentEntry:
		if j.TriggerConfig.SegmentID == "" {
			return fmt.Errorf("segment_entry trigger requires a segment_id")
		}
	case models.TriggerTypeEvent:
		if j.TriggerConfig.EventType == "" {
			return fmt.Errorf("event trigger requires an event_type")
		}
	case models.TriggerTypeDateBased:
		if j.TriggerConfig.Date == nil {
			return fmt.Errorf("date_based trigger requires a date")
		}
	}

	if j.StartDate != nil && j.EndDate != nil && j.EndDate.Before(*j.StartDate) {
		return fmt.Errorf("end date precedes start date")
	}

	return nil
}

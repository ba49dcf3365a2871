package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pumba68/qatering-sub001/pkg/eventbus"
	"github.com/pumba68/qatering-sub001/pkg/events"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/otelhelper"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

// BatchSize caps the number of due participants one invocation processes.
const BatchSize = 500

// ClaimLease is how far a claimed participant's next_step_at is pushed into
// the future. A run that dies mid-batch releases its claims when the lease
// passes.
const ClaimLease = 5 * time.Minute

// RunResult is the aggregate outcome of one batch invocation.
type RunResult struct {
	OK        bool      `json:"ok"`
	Enrolled  int       `json:"enrolled"`
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
	Swept     int       `json:"swept"`
	Timestamp time.Time `json:"timestamp"`
}

// RunCoordinator orchestrates one batch invocation: enrollment scan, claim
// and execution of due participants, then the expiry sweep. It holds no state
// between invocations.
type RunCoordinator struct {
	persistence persistence.Persistence
	scanner     *EnrollmentScanner
	executor    *StepExecutor
	bus         eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewRunCoordinator(
	p persistence.Persistence,
	scanner *EnrollmentScanner,
	executor *StepExecutor,
	bus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *RunCoordinator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("journey-engine")
	}

	return &RunCoordinator{
		persistence: p,
		scanner:     scanner,
		executor:    executor,
		bus:         bus,
		tracer:      tracer,
		logger:      logger,
	}
}

// Run executes one full batch invocation. Participant failures are contained
// and counted; only failures of the batch machinery itself return an error.
func (c *RunCoordinator) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now().UTC()

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "journey.run")
	defer span.End()

	enrolled, err := c.scanner.Scan(ctx, started)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("enrollment scan failed: %w", err)
	}

	claimed, err := c.persistence.ParticipantRepository().ClaimDue(ctx, started, BatchSize, ClaimLease)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to claim due participants: %w", err)
	}

	processed := 0
	failures := 0

	for _, participant := range claimed {
		if err := c.executeContained(ctx, participant, started); err != nil {
			failures++
		}

		processed++
	}

	swept, err := c.persistence.ParticipantRepository().SweepExpired(ctx, started)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("expiry sweep failed: %w", err)
	}

	result := &RunResult{
		OK:        true,
		Enrolled:  enrolled,
		Processed: processed,
		Errors:    failures,
		Swept:     swept,
		Timestamp: started,
	}

	span.SetAttributes(
		attribute.Int("journey.run.enrolled", enrolled),
		attribute.Int("journey.run.processed", processed),
		attribute.Int("journey.run.errors", failures),
		attribute.Int("journey.run.swept", swept),
	)

	c.logger.InfoContext(ctx, "journey run completed",
		"enrolled", enrolled,
		"processed", processed,
		"errors", failures,
		"swept", swept,
		"duration", time.Since(started))

	c.publishRunCompleted(ctx, result, time.Since(started))

	return result, nil
}

// executeContained runs one participant and converts any failure, including a
// panic in a node handler, into a failed participant so the batch continues.
func (c *RunCoordinator) executeContained(ctx context.Context, participant *models.JourneyParticipant, now time.Time) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "journey.participant",
		attribute.String(otelhelper.ParticipantIDKey, participant.ID),
		attribute.String(otelhelper.JourneyIDKey, participant.JourneyID),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during participant processing: %v", r)
			c.failParticipant(ctx, participant, now, err)
			otelhelper.SetError(span, err)
		}
	}()

	err = c.executor.Execute(ctx, participant, now)
	if err == nil {
		return nil
	}

	otelhelper.SetError(span, err)

	// A stop-policy node failure already terminated the participant and
	// wrote its step row; anything else is an uncaught failure.
	if !errors.Is(err, ErrParticipantFailed) {
		c.failParticipant(ctx, participant, now, err)
	}

	return err
}

func (c *RunCoordinator) failParticipant(ctx context.Context, participant *models.JourneyParticipant, now time.Time, cause error) {
	c.logger.ErrorContext(ctx, "participant processing failed",
		"participant_id", participant.ID,
		"journey_id", participant.JourneyID,
		"error", cause)

	entry := &models.JourneyLog{
		JourneyID:     participant.JourneyID,
		ParticipantID: &participant.ID,
		NodeID:        participant.CurrentNodeID,
		EventType:     models.LogEventFailed,
		Status:        models.LogStatusFailed,
		Details:       map[string]any{"error": cause.Error()},
		CreatedAt:     now,
	}
	if err := c.persistence.JourneyLogRepository().Append(ctx, entry); err != nil {
		c.logger.ErrorContext(ctx, "failed to append failure log", "error", err)
	}

	participant.Status = models.ParticipantFailed
	participant.NextStepAt = nil

	if err := c.persistence.ParticipantRepository().Update(ctx, participant); err != nil {
		c.logger.ErrorContext(ctx, "failed to mark participant failed", "error", err)
	}
}

func (c *RunCoordinator) publishRunCompleted(ctx context.Context, result *RunResult, duration time.Duration) {
	if c.bus == nil {
		return
	}

	event := events.RunCompleted{
		BaseEvent: events.BaseEvent{
			ID:        c.bus.GenerateID(),
			Type:      events.RunCompletedEvent,
			Timestamp: result.Timestamp,
		},
		Enrolled:  result.Enrolled,
		Processed: result.Processed,
		Errors:    result.Errors,
		Swept:     result.Swept,
		Duration:  duration,
	}

	if err := c.bus.Publish(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "failed to publish run event", "error", err)
	}
}

package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/eventbus"
	"github.com/pumba68/qatering-sub001/pkg/events"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
	"github.com/pumba68/qatering-sub001/pkg/registry"
)

// MaxStepsPerRun bounds the number of nodes one participant may execute in a
// single invocation. It prevents a malformed graph cycle without a delay from
// pinning the worker.
const MaxStepsPerRun = 20

// ErrParticipantFailed is returned by Execute when a node failure with a stop
// policy terminated the participant. The failure is already recorded on the
// journey log and the participant row; callers only count it.
var ErrParticipantFailed = errors.New("participant failed")

// StepExecutor walks one claimed participant through the journey graph until
// the participant pauses on a delay, terminates, or exhausts the step budget.
type StepExecutor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	evaluator   *ConditionEvaluator
	bus         eventbus.EventBus
	logger      *slog.Logger
}

func NewStepExecutor(
	p persistence.Persistence,
	reg *registry.Registry,
	evaluator *ConditionEvaluator,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *StepExecutor {
	return &StepExecutor{
		persistence: p,
		registry:    reg,
		evaluator:   evaluator,
		bus:         bus,
		logger:      logger,
	}
}

// stepOutcome is the result of executing one node: the edge handle to follow
// and the status and details recorded on the step's log row.
type stepOutcome struct {
	handle  string
	status  models.LogStatus
	details map[string]any
}

// Execute runs the participant's step sequence. The participant must already
// be claimed; all timing decisions use the run's now, not wall-clock reads.
func (e *StepExecutor) Execute(ctx context.Context, participant *models.JourneyParticipant, now time.Time) error {
	journey, err := e.persistence.JourneyRepository().GetByID(ctx, participant.JourneyID)
	if err != nil {
		return fmt.Errorf("failed to load journey %s: %w", participant.JourneyID, err)
	}

	graph, err := models.NewGraph(journey.Content)
	if err != nil {
		return fmt.Errorf("journey %s has an invalid graph: %w", journey.ID, err)
	}

	for range MaxStepsPerRun {
		node := e.currentNode(graph, participant)
		if node == nil || node.Type == models.NodeTypeEnd {
			return e.complete(ctx, participant)
		}

		outcome, execErr := e.executeNode(ctx, journey, participant, node, now)
		if execErr != nil {
			return e.failParticipant(ctx, journey, participant, node, now, execErr)
		}

		if err := e.logStep(ctx, journey, participant, node, outcome.status, outcome.details, now); err != nil {
			return err
		}

		next, ok := graph.Next(node.ID, outcome.handle)
		if !ok || next.Type == models.NodeTypeEnd {
			return e.complete(ctx, participant)
		}

		if next.Type == models.NodeTypeDelay {
			return e.pause(ctx, participant, next, now)
		}

		participant.CurrentNodeID = &next.ID
		if err := e.persistence.ParticipantRepository().Update(ctx, participant); err != nil {
			return fmt.Errorf("failed to advance participant: %w", err)
		}
	}

	// Budget exhausted mid-graph. The participant stays active and due so
	// the next invocation resumes where this one stopped.
	participant.NextStepAt = &now
	if err := e.persistence.ParticipantRepository().Update(ctx, participant); err != nil {
		return fmt.Errorf("failed to reschedule participant after step budget: %w", err)
	}

	e.logger.WarnContext(ctx, "participant exhausted step budget, rescheduled",
		"participant_id", participant.ID,
		"journey_id", participant.JourneyID,
		"budget", MaxStepsPerRun)

	return nil
}

// currentNode resolves the participant's position, falling back to the start
// node when unset. A nil return means the referenced node no longer exists.
func (e *StepExecutor) currentNode(graph *models.Graph, participant *models.JourneyParticipant) *models.CanvasNode {
	if participant.CurrentNodeID == nil {
		return graph.Start()
	}

	node, ok := graph.NodeByID(*participant.CurrentNodeID)
	if !ok {
		return nil
	}

	return node
}

func (e *StepExecutor) executeNode(ctx context.Context, journey *models.Journey, participant *models.JourneyParticipant, node *models.CanvasNode, now time.Time) (stepOutcome, error) {
	details := map[string]any{
		"node_type": string(node.Type),
	}
	if node.Label != "" {
		details["label"] = node.Label
	}

	switch node.Type {
	case models.NodeTypeStart:
		return stepOutcome{handle: models.HandleOutput, status: models.LogStatusSuccess, details: details}, nil
	case models.NodeTypeDelay:
		// The walker only lands here once the wait has elapsed; the pause
		// itself was scheduled when this node was selected as next.
		return stepOutcome{handle: models.HandleOutput, status: models.LogStatusSuccess, details: details}, nil
	case models.NodeTypeBranch:
		return e.executeBranch(ctx, participant, node, details, now)
	default:
		return e.executeHandler(ctx, journey, participant, node, details, now)
	}
}

// executeBranch evaluates the node's condition and selects the yes or no
// edge. A malformed config fails closed to the no edge like any evaluator
// error would.
func (e *StepExecutor) executeBranch(ctx context.Context, participant *models.JourneyParticipant, node *models.CanvasNode, details map[string]any, now time.Time) (stepOutcome, error) {
	result := false

	config, err := models.ParseNodeConfig(node)
	if err != nil {
		e.logger.WarnContext(ctx, "branch node has invalid config, taking no edge",
			"node_id", node.ID,
			"error", err)
	} else if branch, ok := config.(models.BranchConfig); ok {
		result = e.evaluator.Evaluate(ctx, branch.Condition, participant.UserID, now)
	}

	handle := models.HandleNo
	if result {
		handle = models.HandleYes
	}

	details["result"] = result
	details["taken"] = handle

	return stepOutcome{handle: handle, status: models.LogStatusSuccess, details: details}, nil
}

// executeHandler dispatches a side-effecting node to its registered handler
// and applies the node's on-failure policy to the result.
func (e *StepExecutor) executeHandler(ctx context.Context, journey *models.Journey, participant *models.JourneyParticipant, node *models.CanvasNode, details map[string]any, now time.Time) (stepOutcome, error) {
	config, err := models.ParseNodeConfig(node)
	if err != nil {
		return stepOutcome{}, fmt.Errorf("invalid node config: %w", err)
	}

	handler, err := e.registry.HandlerFor(node.Type)
	if err != nil {
		return stepOutcome{}, err
	}

	step := protocol.StepContext{
		Journey:     journey,
		Participant: participant,
		Node:        node,
		Config:      config,
		Now:         now,
		Logger:      e.logger,
	}

	handlerDetails, execErr := handler.Execute(ctx, step)
	for key, value := range handlerDetails {
		details[key] = value
	}

	if execErr != nil {
		if models.OnFailurePolicy(config) == models.FailureStop {
			return stepOutcome{}, execErr
		}

		// Continue policy: the step row records the failure but the walk
		// goes on via the output edge.
		details["error"] = execErr.Error()

		e.logger.WarnContext(ctx, "node failed, continuing per on-failure policy",
			"participant_id", participant.ID,
			"node_id", node.ID,
			"node_type", string(node.Type),
			"error", execErr)

		return stepOutcome{handle: models.HandleOutput, status: models.LogStatusFailed, details: details}, nil
	}

	return stepOutcome{handle: models.HandleOutput, status: models.LogStatusSuccess, details: details}, nil
}

// complete terminates the participant and clears its scheduling key. End
// nodes themselves produce no log row.
func (e *StepExecutor) complete(ctx context.Context, participant *models.JourneyParticipant) error {
	participant.Status = models.ParticipantCompleted
	participant.NextStepAt = nil

	if err := e.persistence.ParticipantRepository().Update(ctx, participant); err != nil {
		return fmt.Errorf("failed to complete participant: %w", err)
	}

	e.logger.InfoContext(ctx, "participant completed journey",
		"participant_id", participant.ID,
		"journey_id", participant.JourneyID)

	return nil
}

// pause schedules the participant on a delay node. The due time is computed
// from the run's now so that a slow batch does not stretch the wait.
func (e *StepExecutor) pause(ctx context.Context, participant *models.JourneyParticipant, delayNode *models.CanvasNode, now time.Time) error {
	config, err := models.ParseNodeConfig(delayNode)
	if err != nil {
		return fmt.Errorf("invalid delay config on node %s: %w", delayNode.ID, err)
	}

	delay, ok := config.(models.DelayConfig)
	if !ok {
		return fmt.Errorf("node %s is not a delay node", delayNode.ID)
	}

	due := now.Add(delay.Duration())
	participant.CurrentNodeID = &delayNode.ID
	participant.NextStepAt = &due

	if err := e.persistence.ParticipantRepository().Update(ctx, participant); err != nil {
		return fmt.Errorf("failed to pause participant: %w", err)
	}

	return nil
}

// failParticipant applies a stop-policy node failure: the participant is
// terminated as failed and the node's step row records the failure. Exactly
// one log row is written for the failed node.
func (e *StepExecutor) failParticipant(ctx context.Context, journey *models.Journey, participant *models.JourneyParticipant, node *models.CanvasNode, now time.Time, cause error) error {
	details := map[string]any{
		"node_type": string(node.Type),
		"error":     cause.Error(),
	}
	if node.Label != "" {
		details["label"] = node.Label
	}

	if err := e.logStep(ctx, journey, participant, node, models.LogStatusFailed, details, now); err != nil {
		return err
	}

	participant.Status = models.ParticipantFailed
	participant.NextStepAt = nil

	if err := e.persistence.ParticipantRepository().Update(ctx, participant); err != nil {
		return fmt.Errorf("failed to mark participant failed: %w", err)
	}

	e.logger.ErrorContext(ctx, "participant failed on node",
		"participant_id", participant.ID,
		"journey_id", participant.JourneyID,
		"node_id", node.ID,
		"error", cause)

	return fmt.Errorf("node %s: %w: %w", node.ID, ErrParticipantFailed, cause)
}

func (e *StepExecutor) logStep(ctx context.Context, journey *models.Journey, participant *models.JourneyParticipant, node *models.CanvasNode, status models.LogStatus, details map[string]any, now time.Time) error {
	entry := &models.JourneyLog{
		JourneyID:     participant.JourneyID,
		ParticipantID: &participant.ID,
		NodeID:        &node.ID,
		EventType:     models.LogEventStepExecuted,
		Status:        status,
		Details:       details,
		CreatedAt:     now,
	}

	if err := e.persistence.JourneyLogRepository().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append step log: %w", err)
	}

	e.publishStep(ctx, journey, participant, node, status, details, now)

	return nil
}

func (e *StepExecutor) publishStep(ctx context.Context, journey *models.Journey, participant *models.JourneyParticipant, node *models.CanvasNode, status models.LogStatus, details map[string]any, now time.Time) {
	if e.bus == nil {
		return
	}

	event := events.StepExecuted{
		BaseEvent: events.BaseEvent{
			ID:        e.bus.GenerateID(),
			Type:      events.StepExecutedEvent,
			Timestamp: now,
			TenantID:  participant.TenantID,
			JourneyID: journey.ID,
		},
		ParticipantID: participant.ID,
		UserID:        participant.UserID,
		NodeID:        node.ID,
		NodeType:      string(node.Type),
		Status:        string(status),
		Details:       details,
	}

	if err := e.bus.Publish(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish step event", "error", err)
	}
}

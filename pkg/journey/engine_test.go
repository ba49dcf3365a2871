package journey_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pumba68/qatering-sub001/pkg/audience"
	"github.com/pumba68/qatering-sub001/pkg/journey"
	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/nodes/inapp"
	"github.com/pumba68/qatering-sub001/pkg/nodes/incentive"
	"github.com/pumba68/qatering-sub001/pkg/persistence/file"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
	"github.com/pumba68/qatering-sub001/pkg/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubHandler stands in for a channel node. The optional execute hook lets a
// test fail or panic per participant.
type stubHandler struct {
	nodeType models.NodeType
	details  map[string]any
	err      error
	execute  func(step protocol.StepContext) (map[string]any, error)
	calls    int
}

func (h *stubHandler) Type() models.NodeType {
	return h.nodeType
}

func (h *stubHandler) Execute(_ context.Context, step protocol.StepContext) (map[string]any, error) {
	h.calls++

	if h.execute != nil {
		return h.execute(step)
	}

	return h.details, h.err
}

type engineFixture struct {
	persistence *file.Persistence
	resolver    *audience.StoreResolver
	registry    *registry.Registry
	scanner     *journey.EnrollmentScanner
	executor    *journey.StepExecutor
	coordinator *journey.RunCoordinator

	email *stubHandler
	push  *stubHandler
}

// newEngine wires the full engine on the file store. Email and push are
// stubs so tests control delivery outcomes; inapp and incentive are the real
// handlers.
func newEngine(t *testing.T) *engineFixture {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	logger := testLogger()

	resolver := audience.NewStoreResolver(p.UserRepository(), logger)
	evaluator := journey.NewConditionEvaluator(p.SegmentRepository(), p.UserRepository(), resolver, logger)

	email := &stubHandler{nodeType: models.NodeTypeEmail, details: map[string]any{"channel": "email"}}
	push := &stubHandler{nodeType: models.NodeTypePush, details: map[string]any{"channel": "push"}}

	reg := registry.NewRegistry(logger)
	reg.Register(email)
	reg.Register(push)
	reg.Register(inapp.NewNode())
	reg.Register(incentive.NewNode(p.WalletRepository(), p.CouponRepository()))

	scanner := journey.NewEnrollmentScanner(p, resolver, nil, logger)
	executor := journey.NewStepExecutor(p, reg, evaluator, nil, logger)
	coordinator := journey.NewRunCoordinator(p, scanner, executor, nil, nil, logger)

	return &engineFixture{
		persistence: p,
		resolver:    resolver,
		registry:    reg,
		scanner:     scanner,
		executor:    executor,
		coordinator: coordinator,
		email:       email,
		push:        push,
	}
}

func canvasNode(id string, nodeType models.NodeType, config map[string]any) *models.CanvasNode {
	return &models.CanvasNode{ID: id, Type: nodeType, Config: config}
}

func canvasEdge(source, handle, target string) *models.CanvasEdge {
	return &models.CanvasEdge{Source: source, SourceHandle: handle, Target: target}
}

// saveJourney persists an active segment-entry journey with the given graph
// and re-entry policy.
func saveJourney(t *testing.T, fx *engineFixture, segmentID string, policy models.ReEntryPolicy, content models.GraphContent) *models.Journey {
	t.Helper()

	j := &models.Journey{
		TenantID:      "tenant-1",
		Name:          "welcome flow",
		Status:        models.JourneyStatusActive,
		TriggerType:   models.TriggerTypeSegmentEntry,
		TriggerConfig: models.TriggerConfig{SegmentID: segmentID},
		Content:       content,
		ReEntryPolicy: policy,
	}
	require.NoError(t, fx.persistence.JourneyRepository().Save(t.Context(), j))

	return j
}

// saveDormantSegment stores a segment matching dormant tenant-1 users.
func saveDormantSegment(t *testing.T, fx *engineFixture) *models.Segment {
	t.Helper()

	segment := &models.Segment{
		ID:          "seg-dormant",
		TenantID:    "tenant-1",
		Name:        "dormant users",
		Rules:       []models.SegmentRule{{Field: "activity", Operator: "eq", Value: "dormant"}},
		Combination: models.CombineAnd,
	}
	require.NoError(t, fx.persistence.SegmentRepository().Save(t.Context(), segment))

	return segment
}

func saveUser(t *testing.T, fx *engineFixture, id, name string, activity models.ActivityClass) *models.User {
	t.Helper()

	user := &models.User{
		ID:       id,
		TenantID: "tenant-1",
		Name:     name,
		Email:    id + "@example.com",
		Activity: activity,
	}
	require.NoError(t, fx.persistence.UserRepository().Save(t.Context(), user))

	return user
}

// linearContent builds start -> middle... -> end with output edges.
func linearContent(middle ...*models.CanvasNode) models.GraphContent {
	nodes := []*models.CanvasNode{canvasNode("start", models.NodeTypeStart, nil)}
	nodes = append(nodes, middle...)
	nodes = append(nodes, canvasNode("end", models.NodeTypeEnd, nil))

	edges := make([]*models.CanvasEdge, 0, len(nodes)-1)
	for i := 0; i < len(nodes)-1; i++ {
		edges = append(edges, canvasEdge(nodes[i].ID, models.HandleOutput, nodes[i+1].ID))
	}

	return models.GraphContent{Nodes: nodes, Edges: edges}
}

// enrollParticipant creates a claimed active row positioned on the start node.
func enrollParticipant(t *testing.T, fx *engineFixture, j *models.Journey, userID string, now time.Time) *models.JourneyParticipant {
	t.Helper()

	startID := "start"
	participant := &models.JourneyParticipant{
		JourneyID:     j.ID,
		TenantID:      j.TenantID,
		UserID:        userID,
		Status:        models.ParticipantActive,
		CurrentNodeID: &startID,
		EnteredAt:     now,
		NextStepAt:    &now,
	}
	require.NoError(t, fx.persistence.ParticipantRepository().Create(t.Context(), participant))

	return participant
}

func participantLogs(t *testing.T, fx *engineFixture, participantID string) []*models.JourneyLog {
	t.Helper()

	logs, err := fx.persistence.JourneyLogRepository().ListByParticipant(t.Context(), participantID)
	require.NoError(t, err)

	return logs
}

func reloadParticipant(t *testing.T, fx *engineFixture, id string) *models.JourneyParticipant {
	t.Helper()

	participant, err := fx.persistence.ParticipantRepository().GetByID(t.Context(), id)
	require.NoError(t, err)

	return participant
}

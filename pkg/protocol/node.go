package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
)

// StepContext is everything a node handler may read while executing one step
// for one participant. Config holds the node's parsed NodeConfig variant.
type StepContext struct {
	Journey     *models.Journey
	Participant *models.JourneyParticipant
	Node        *models.CanvasNode
	Config      models.NodeConfig
	Now         time.Time
	Logger      *slog.Logger
}

// NodeHandler executes the side effect of one node type. The returned details
// are recorded verbatim on the step's journey log row. A non-nil error means
// the side effect failed; the walker applies the node's on-failure policy.
type NodeHandler interface {
	Type() models.NodeType
	Execute(ctx context.Context, step StepContext) (map[string]any, error)
}

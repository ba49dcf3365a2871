// Package inapp implements the in-app message node. There is no per-user
// in-app delivery store in the surrounding platform, so executing the node
// records the message intent on the journey log and nothing else.
package inapp

import (
	"context"
	"fmt"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

type Node struct{}

func NewNode() *Node {
	return &Node{}
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeInApp
}

func (n *Node) Execute(_ context.Context, step protocol.StepContext) (map[string]any, error) {
	config, ok := step.Config.(models.InAppConfig)
	if !ok {
		return nil, fmt.Errorf("inapp node %q has no parsed config", step.Node.ID)
	}

	step.Logger.Info("recorded in-app message intent",
		"journey_id", step.Journey.ID,
		"user_id", step.Participant.UserID,
		"node_id", step.Node.ID)

	return map[string]any{
		"channel":     "inapp",
		"intent_only": true,
		"template_id": config.TemplateID,
		"message":     config.Message,
	}, nil
}

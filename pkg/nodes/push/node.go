// Package push implements the push node: render the authored template and
// fan it out to every push subscription the recipient registered.
package push

import (
	"context"
	"fmt"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

type Node struct {
	users     persistence.UserRepository
	templates persistence.TemplateRepository
	renderer  protocol.TemplateRenderer
	sender    protocol.PushSender
}

func NewNode(
	users persistence.UserRepository,
	templates persistence.TemplateRepository,
	renderer protocol.TemplateRenderer,
	sender protocol.PushSender,
) *Node {
	return &Node{users: users, templates: templates, renderer: renderer, sender: sender}
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypePush
}

func (n *Node) Execute(ctx context.Context, step protocol.StepContext) (map[string]any, error) {
	config, ok := step.Config.(models.PushConfig)
	if !ok {
		return nil, fmt.Errorf("push node %q has no parsed config", step.Node.ID)
	}

	user, err := n.users.GetByID(ctx, step.Participant.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipient: %w", err)
	}

	// A user without subscriptions never opted in to push. That is not a
	// delivery failure; the step succeeds with nothing sent.
	if len(user.Subscriptions) == 0 {
		return map[string]any{
			"channel":     "push",
			"sent_count":  0,
			"skipped":     true,
			"template_id": config.TemplateID,
		}, nil
	}

	template, err := n.templates.GetByID(ctx, config.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template %q: %w", config.TemplateID, err)
	}

	variables := map[string]any{
		"name": user.Name,
	}

	title := config.Title
	if title == "" {
		title = template.Subject
	}

	renderedTitle, err := n.renderer.Render(title, variables)
	if err != nil {
		return nil, fmt.Errorf("failed to render title: %w", err)
	}

	body, err := n.renderer.Render(template.Content, variables)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	result, err := n.sender.Send(ctx, user.Subscriptions, protocol.PushPayload{
		Title: renderedTitle,
		Body:  body,
	})
	if err != nil {
		return nil, fmt.Errorf("push send failed: %w", err)
	}

	if result.SentCount == 0 && result.FailedCount > 0 {
		return nil, fmt.Errorf("push delivery failed for all %d subscriptions", result.FailedCount)
	}

	return map[string]any{
		"channel":      "push",
		"sent_count":   result.SentCount,
		"failed_count": result.FailedCount,
		"template_id":  config.TemplateID,
	}, nil
}

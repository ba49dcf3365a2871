// Package email implements the email node: resolve the recipient and the
// authored template, render both subject and body, and hand the message to
// the configured email channel.
package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

type Node struct {
	users     persistence.UserRepository
	templates persistence.TemplateRepository
	renderer  protocol.TemplateRenderer
	sender    protocol.EmailSender
}

func NewNode(
	users persistence.UserRepository,
	templates persistence.TemplateRepository,
	renderer protocol.TemplateRenderer,
	sender protocol.EmailSender,
) *Node {
	return &Node{users: users, templates: templates, renderer: renderer, sender: sender}
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeEmail
}

func (n *Node) Execute(ctx context.Context, step protocol.StepContext) (map[string]any, error) {
	config, ok := step.Config.(models.EmailConfig)
	if !ok {
		return nil, fmt.Errorf("email node %q has no parsed config", step.Node.ID)
	}

	user, err := n.users.GetByID(ctx, step.Participant.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipient: %w", err)
	}

	if user.Email == "" {
		return nil, errors.New("recipient has no email address")
	}

	template, err := n.templates.GetByID(ctx, config.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template %q: %w", config.TemplateID, err)
	}

	variables := map[string]any{
		"name":  user.Name,
		"email": user.Email,
	}

	subject := config.Subject
	if subject == "" {
		subject = template.Subject
	}

	renderedSubject, err := n.renderer.Render(subject, variables)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	body, err := n.renderer.Render(template.Content, variables)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	result, err := n.sender.Send(ctx, user.Email, renderedSubject, body, config.From)
	if err != nil {
		return nil, fmt.Errorf("email send failed: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("email delivery rejected: %s", result.Error)
	}

	return map[string]any{
		"channel":     "email",
		"to":          user.Email,
		"template_id": config.TemplateID,
		"message_id":  result.MessageID,
	}, nil
}

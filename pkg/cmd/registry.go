// Package cmd provides common initialization for the engine's binaries.
package cmd

import (
	"log/slog"

	"github.com/pumba68/qatering-sub001/pkg/nodes/email"
	"github.com/pumba68/qatering-sub001/pkg/nodes/inapp"
	"github.com/pumba68/qatering-sub001/pkg/nodes/incentive"
	"github.com/pumba68/qatering-sub001/pkg/nodes/push"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
	"github.com/pumba68/qatering-sub001/pkg/registry"
	"github.com/pumba68/qatering-sub001/pkg/template"
)

// NewRegistry builds the node handler registry with every executable node
// type wired to its channels and stores.
func NewRegistry(
	logger *slog.Logger,
	p persistence.Persistence,
	emailSender protocol.EmailSender,
	pushSender protocol.PushSender,
) *registry.Registry {
	renderer := template.NewRenderer()

	reg := registry.NewRegistry(logger)
	reg.Register(email.NewNode(p.UserRepository(), p.TemplateRepository(), renderer, emailSender))
	reg.Register(push.NewNode(p.UserRepository(), p.TemplateRepository(), renderer, pushSender))
	reg.Register(inapp.NewNode())
	reg.Register(incentive.NewNode(p.WalletRepository(), p.CouponRepository()))

	return reg
}

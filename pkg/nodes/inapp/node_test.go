package inapp_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/nodes/inapp"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInAppNode_Execute(t *testing.T) {
	node := inapp.NewNode()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	details, err := node.Execute(t.Context(), protocol.StepContext{
		Journey:     &models.Journey{ID: "j-1"},
		Participant: &models.JourneyParticipant{ID: "p-1", UserID: "user-1"},
		Node:        &models.CanvasNode{ID: "banner", Type: models.NodeTypeInApp},
		Config:      models.InAppConfig{TemplateID: "tpl-1", Message: "10% off today"},
		Now:         time.Now().UTC(),
		Logger:      logger,
	})
	require.NoError(t, err)

	assert.Equal(t, true, details["intent_only"])
	assert.Equal(t, "10% off today", details["message"])
	assert.Equal(t, "inapp", details["channel"])
}

func TestInAppNode_Execute_MissingConfig(t *testing.T) {
	node := inapp.NewNode()

	_, err := node.Execute(t.Context(), protocol.StepContext{
		Node: &models.CanvasNode{ID: "banner", Type: models.NodeTypeInApp},
	})
	assert.ErrorContains(t, err, "no parsed config")
}

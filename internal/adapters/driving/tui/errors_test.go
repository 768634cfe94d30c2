package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrMissingSyncOrchestrator.Error(), ErrMissingConnectionService.Error())
}

func TestErrMissingSyncOrchestrator_Message(t *testing.T) {
	assert.Contains(t, ErrMissingSyncOrchestrator.Error(), "sync orchestrator")
}

func TestErrMissingConnectionService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingConnectionService.Error(), "connection service")
}

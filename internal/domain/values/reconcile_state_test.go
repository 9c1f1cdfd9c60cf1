package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ReconcileState_IsTerminal(t *testing.T) {
	tests := []struct {
		state ReconcileState
		want  bool
	}{
		{StateIdle, false},
		{StateRunning, false},
		{StateConverged, true},
		{StateExhausted, true},
		{StateFailed, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsTerminal())
		})
	}
}

func Test_ReconcileState_Validate(t *testing.T) {
	assert.NoError(t, StateConverged.Validate())
	assert.Error(t, ReconcileState("bogus").Validate())
}

func Test_ReconcileState_IsSuccess(t *testing.T) {
	assert.True(t, StateConverged.IsSuccess())
	assert.False(t, StateExhausted.IsSuccess())
}

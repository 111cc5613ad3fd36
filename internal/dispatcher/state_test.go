package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "init", from: StateUninitialized, event: EventInitialized, want: StateReady},
		{name: "init failure", from: StateUninitialized, event: EventFail, want: StateTerminated},
		{name: "command before init", from: StateUninitialized, event: EventCommand, want: StateUninitialized, wantErr: true},
		{name: "command", from: StateReady, event: EventCommand, want: StateHandling},
		{name: "end of input", from: StateReady, event: EventTerminate, want: StateTerminated},
		{name: "loop failure", from: StateReady, event: EventFail, want: StateTerminated},
		{name: "double init", from: StateReady, event: EventInitialized, want: StateReady, wantErr: true},
		{name: "handled", from: StateHandling, event: EventHandled, want: StateReady},
		{name: "shutdown", from: StateHandling, event: EventTerminate, want: StateTerminated},
		{name: "overlapping command", from: StateHandling, event: EventCommand, want: StateHandling, wantErr: true},
		{name: "after termination", from: StateTerminated, event: EventCommand, want: StateTerminated, wantErr: true},
		{name: "fail after termination", from: StateTerminated, event: EventFail, want: StateTerminated, wantErr: true},
		{name: "unknown state", from: State("bogus"), event: EventCommand, want: State("bogus"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.event)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

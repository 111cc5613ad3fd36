package dispatcher

import "fmt"

type State string

type Event string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateHandling      State = "handling"
	StateTerminated    State = "terminated"
)

const (
	EventInitialized Event = "initialized"
	EventCommand     Event = "command"
	EventHandled     Event = "handled"
	EventTerminate   Event = "terminate"
	EventFail        Event = "fail"
)

// AllStates lists every state, in lifecycle order.
var AllStates = []State{StateUninitialized, StateReady, StateHandling, StateTerminated}

func Transition(current State, event Event) (State, error) {
	if current == StateTerminated {
		return current, invalidTransition(current, event)
	}
	if event == EventFail {
		return StateTerminated, nil
	}

	switch current {
	case StateUninitialized:
		switch event {
		case EventInitialized:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateReady:
		switch event {
		case EventCommand:
			return StateHandling, nil
		case EventTerminate:
			return StateTerminated, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateHandling:
		switch event {
		case EventHandled:
			return StateReady, nil
		case EventTerminate:
			return StateTerminated, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}

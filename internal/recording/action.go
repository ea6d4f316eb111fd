package recording

// Action is an operator control command.
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

// Actions lists every valid action.
var Actions = []Action{ActionStart, ActionPause, ActionResume, ActionStop}

// ParseAction maps a query value to an Action.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionStart, ActionPause, ActionResume, ActionStop:
		return a, true
	}
	return "", false
}

// ParseActionValues resolves the values of a repeated "action" query key.
// A missing key, an unknown value or conflicting duplicates yield false;
// duplicates that agree are accepted.
func ParseActionValues(values []string) (Action, bool) {
	if len(values) == 0 {
		return "", false
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return "", false
		}
	}
	return ParseAction(values[0])
}

package agent

// State is the position of a turn in the tool-calling loop.
type State int

const (
	AwaitingQuery State = iota
	QueryingModel
	NoToolDetected
	ToolDetected
	ValidatingTool
	InvokingTool
	ReQueryingModel
	Done
	Failed
)

var stateNames = [...]string{
	AwaitingQuery:   "awaiting-query",
	QueryingModel:   "querying-model",
	NoToolDetected:  "no-tool-detected",
	ToolDetected:    "tool-detected",
	ValidatingTool:  "validating-tool",
	InvokingTool:    "invoking-tool",
	ReQueryingModel: "requerying-model",
	Done:            "done",
	Failed:          "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

var transitions = map[State][]State{
	AwaitingQuery:   {QueryingModel, Failed},
	QueryingModel:   {NoToolDetected, ToolDetected, Failed},
	NoToolDetected:  {Done, Failed},
	ToolDetected:    {ValidatingTool, Failed},
	ValidatingTool:  {InvokingTool, Failed},
	InvokingTool:    {ReQueryingModel, Failed},
	ReQueryingModel: {Done, Failed},
}

// CanTransition reports whether the loop may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

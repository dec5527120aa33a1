package model

// Fixed user-facing texts.
const (
	ApologyText        = "Sorry, I encountered an error while processing your request."
	RefusalText        = "I'm sorry, I can't handle that request right now."
	DirectFallbackText = "Sorry, I didn't understand that."
	DatePromptText     = "Please pick the date you want to check availability for (YYYY-MM-DD)."
)

// DateQuestionFormat is the synthesized user message for a resolved date.
const DateQuestionFormat = "What is the availability on %s?"

// Request is one turn's input, shared by the text and date-input entry points.
type Request struct {
	UserID     string `json:"user_id"`
	ReplyToken string `json:"reply_token"`
	Text       string `json:"text"`
}

// State is the dispatcher state a turn terminated in.
type State string

const (
	StateDirect           State = "direct"
	StateAwaitDate        State = "await_date"
	StateUnknownFunction  State = "unknown_function"
	StateMergeAndResolve  State = "merge_and_resolve"
	StateFailed           State = "failed"
	StateDispatchToday    State = "dispatch_today"
	StateDispatchTomorrow State = "dispatch_tomorrow"
	StateDispatchSpecific State = "dispatch_specific"
)

// Outcome is the terminal result of one turn.
type Outcome struct {
	State    State
	Text     string
	Function string
	// Dispatched is the DISPATCH_* state the backend query ran under, if any.
	Dispatched State
}

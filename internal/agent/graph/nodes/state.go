package nodes

import (
	"github.com/cloudwego/eino/schema"

	"github.com/bayline/server/internal/agent/graph/conversations"
	"github.com/bayline/server/internal/agent/model"
)

// Node keys of the turn graph.
const (
	NodeTranscript   = "TranscriptBuilder"
	NodeIntentModel  = "IntentChatModel"
	NodeDirectAnswer = "DirectAnswer"
	NodeDispatcher   = "FunctionDispatcher"
	NodeTerminal     = "TerminalReply"
	NodeMerge        = "MergeFunctionResult"
	NodeReplyModel   = "ReplyChatModel"
	NodeFinalAnswer  = "FinalAnswer"
)

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Touched only inside state handlers or compose.ProcessState, which Eino serializes.
type AppState struct {
	Request       model.Request
	Transcript    *conversations.Transcript
	Function      string      // function dispatched on this turn, if any
	Dispatched    model.State // DISPATCH_* state the backend query ran under
	ToolCallIDSeq int         // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// Dispatch is the Function Dispatcher's output. A non-nil Outcome ends the turn.
type Dispatch struct {
	Outcome  *model.Outcome
	Call     schema.ToolCall
	Response string
}

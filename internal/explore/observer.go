package explore

import (
	"time"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/classify"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
)

// Step identifies a position in a round.
type Step int

const (
	StepListObjects Step = iota
	StepStructure
	StepListPredefined
	StepPredefinedDetail
)

func (s Step) String() string {
	switch s {
	case StepListObjects:
		return "list_objects"
	case StepStructure:
		return "structure"
	case StepListPredefined:
		return "list_predefined"
	case StepPredefinedDetail:
		return "predefined_detail"
	default:
		return "unknown"
	}
}

// RoundStatus says how a round ended.
type RoundStatus int

const (
	// RoundCompleted means every step the round chose to take was made.
	RoundCompleted RoundStatus = iota
	RoundListingError
	RoundListingSkipped
	RoundNoObjects
	RoundPredefinedError
	RoundPredefinedSkipped
	RoundCancelled
)

func (s RoundStatus) String() string {
	switch s {
	case RoundCompleted:
		return "completed"
	case RoundListingError:
		return "listing_error"
	case RoundListingSkipped:
		return "listing_skipped"
	case RoundNoObjects:
		return "no_objects"
	case RoundPredefinedError:
		return "predefined_error"
	case RoundPredefinedSkipped:
		return "predefined_skipped"
	case RoundCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CallRecord describes one classified tool call.
type CallRecord struct {
	Round     int
	Step      Step
	Tool      string
	Arguments map[string]any
	Result    *mcp.ToolResult
	Outcome   classify.Outcome
	// ArgError is set when the arguments failed schema validation. The
	// call is still made.
	ArgError error
	Duration time.Duration
}

// RoundResult summarizes one round.
type RoundResult struct {
	Round    int
	MetaType string
	Object   string
	Status   RoundStatus
	Calls    int
}

// Observer receives call and round notifications. Rounds may run
// concurrently, so implementations must be safe for concurrent use.
type Observer interface {
	CallCompleted(CallRecord)
	RoundCompleted(RoundResult)
}

// Recorder accumulates per-tool verdicts.
type Recorder interface {
	Record(method string, v classify.Verdict)
}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) CallCompleted(rec CallRecord) {
	for _, obs := range o {
		obs.CallCompleted(rec)
	}
}

func (o Observers) RoundCompleted(res RoundResult) {
	for _, obs := range o {
		obs.RoundCompleted(res)
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(string, classify.Verdict) {}

// Package events carries run progress from the exploration driver to
// live views.
package events

import (
	"time"
)

// EventType identifies the kind of event.
type EventType int

const (
	EventRunStarted EventType = iota
	EventCallCompleted
	EventRoundCompleted
	EventRunFinished
)

func (e EventType) String() string {
	switch e {
	case EventRunStarted:
		return "run_started"
	case EventCallCompleted:
		return "call_completed"
	case EventRoundCompleted:
		return "round_completed"
	case EventRunFinished:
		return "run_finished"
	default:
		return "unknown"
	}
}

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

type baseEvent struct {
	timestamp time.Time
}

func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func now() baseEvent { return baseEvent{timestamp: time.Now()} }

// RunStartedEvent is emitted once the handshake succeeded.
type RunStartedEvent struct {
	baseEvent
	Rounds     int
	Workers    int
	Seed       uint64
	ServerName string
	SessionID  string
}

func (e RunStartedEvent) Type() EventType { return EventRunStarted }

// NewRunStarted creates a RunStartedEvent.
func NewRunStarted(rounds, workers int, seed uint64, serverName, sessionID string) RunStartedEvent {
	return RunStartedEvent{
		baseEvent:  now(),
		Rounds:     rounds,
		Workers:    workers,
		Seed:       seed,
		ServerName: serverName,
		SessionID:  sessionID,
	}
}

// CallCompletedEvent is emitted after every classified tool call.
type CallCompletedEvent struct {
	baseEvent
	Round    int
	Tool     string
	Verdict  string
	Duration time.Duration
}

func (e CallCompletedEvent) Type() EventType { return EventCallCompleted }

// NewCallCompleted creates a CallCompletedEvent.
func NewCallCompleted(round int, tool, verdict string, d time.Duration) CallCompletedEvent {
	return CallCompletedEvent{baseEvent: now(), Round: round, Tool: tool, Verdict: verdict, Duration: d}
}

// RoundCompletedEvent is emitted when a round ends, however it ended.
type RoundCompletedEvent struct {
	baseEvent
	Round    int
	MetaType string
	Object   string
	Status   string
}

func (e RoundCompletedEvent) Type() EventType { return EventRoundCompleted }

// NewRoundCompleted creates a RoundCompletedEvent.
func NewRoundCompleted(round int, metaType, object, status string) RoundCompletedEvent {
	return RoundCompletedEvent{baseEvent: now(), Round: round, MetaType: metaType, Object: object, Status: status}
}

// RunFinishedEvent is the last event of a run.
type RunFinishedEvent struct {
	baseEvent
	Completed int
	Cancelled bool
}

func (e RunFinishedEvent) Type() EventType { return EventRunFinished }

// NewRunFinished creates a RunFinishedEvent.
func NewRunFinished(completed int, cancelled bool) RunFinishedEvent {
	return RunFinishedEvent{baseEvent: now(), Completed: completed, Cancelled: cancelled}
}

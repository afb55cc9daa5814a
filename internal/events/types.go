// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Trade events
	TradeSubmitted EventType = "trade.submitted"
	TradeFailed    EventType = "trade.failed"

	// Bundle events
	BundleSubmitted EventType = "bundle.submitted"
	BundleFailed    EventType = "bundle.failed"

	// Schedule events
	ScheduleStarted   EventType = "schedule.started"
	ScheduleStopped   EventType = "schedule.stopped"
	ScheduleIteration EventType = "schedule.iteration"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event header with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TradeEvent is emitted after a single trade submission, successful or not.
type TradeEvent struct {
	BaseEvent
	UserID      string
	Mint        string
	Action      string
	Signature   string
	ExplorerURL string
	Error       string
}

// BundleEvent is emitted after a launch bundle submission.
type BundleEvent struct {
	BaseEvent
	UserID      string
	Mint        string
	BundleID    string
	Signatures  []string
	ExplorerURL string
	Error       string
}

// ScheduleEvent is emitted when a recurring purchase starts, stops or finishes an iteration.
type ScheduleEvent struct {
	BaseEvent
	UserID      string
	Mint        string
	HandleID    string
	Iteration   int
	Success     bool
	Signature   string
	ExplorerURL string
	Error       string
	Replaced    bool
}

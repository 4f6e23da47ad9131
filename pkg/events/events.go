package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// EventType discriminates the events published while an agent run
// progresses.
type EventType string

const (
	EventTypeRoundStarted EventType = "round-started"
	EventTypeAssistant    EventType = "assistant-reply"
	EventTypeToolCalled   EventType = "tool-called"
	EventTypeEvidence     EventType = "evidence-added"
	EventTypeSnapshot     EventType = "snapshot-injected"
	EventTypeFinal        EventType = "final-answer"
)

// Event is the common surface of all agent run events.
type Event interface {
	Type() EventType
	RunID() string
}

// EventMeta is embedded in every concrete event.
type EventMeta struct {
	EventType EventType `json:"type"`
	Run       string    `json:"run_id"`
	Time      time.Time `json:"time"`
}

func (m EventMeta) Type() EventType { return m.EventType }
func (m EventMeta) RunID() string   { return m.Run }

func newMeta(t EventType, runID string) EventMeta {
	return EventMeta{EventType: t, Run: runID, Time: time.Now()}
}

// EventRoundStarted marks the start of a reasoning round.
type EventRoundStarted struct {
	EventMeta
	Step      int  `json:"step"`
	StepsLeft int  `json:"steps_left"`
	Final     bool `json:"final"`
}

func NewRoundStarted(runID string, step, stepsLeft int, final bool) *EventRoundStarted {
	return &EventRoundStarted{EventMeta: newMeta(EventTypeRoundStarted, runID), Step: step, StepsLeft: stepsLeft, Final: final}
}

// EventAssistantReply carries the assistant text produced in a round.
type EventAssistantReply struct {
	EventMeta
	Step int    `json:"step"`
	Text string `json:"text"`
}

func NewAssistantReply(runID string, step int, text string) *EventAssistantReply {
	return &EventAssistantReply{EventMeta: newMeta(EventTypeAssistant, runID), Step: step, Text: text}
}

// EventToolCalled marks a tool request issued by the model.
type EventToolCalled struct {
	EventMeta
	Step int    `json:"step"`
	Tool string `json:"tool"`
	Args string `json:"args"`
}

func NewToolCalled(runID string, step int, tool, args string) *EventToolCalled {
	return &EventToolCalled{EventMeta: newMeta(EventTypeToolCalled, runID), Step: step, Tool: tool, Args: args}
}

// EventEvidenceAdded marks a tool result folded back into the run.
type EventEvidenceAdded struct {
	EventMeta
	Step  int    `json:"step"`
	Tool  string `json:"tool"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func NewEvidenceAdded(runID string, step int, tool string, ok bool, errMsg string) *EventEvidenceAdded {
	return &EventEvidenceAdded{EventMeta: newMeta(EventTypeEvidence, runID), Step: step, Tool: tool, OK: ok, Error: errMsg}
}

// EventSnapshotInjected marks a focus reminder added before a round.
type EventSnapshotInjected struct {
	EventMeta
	Step int `json:"step"`
}

func NewSnapshotInjected(runID string, step int) *EventSnapshotInjected {
	return &EventSnapshotInjected{EventMeta: newMeta(EventTypeSnapshot, runID), Step: step}
}

// EventFinalAnswer closes a run with its extracted answer.
type EventFinalAnswer struct {
	EventMeta
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Outcome  string `json:"outcome"`
	Steps    int    `json:"steps"`
}

func NewFinalAnswer(runID, question, answer, outcome string, steps int) *EventFinalAnswer {
	return &EventFinalAnswer{EventMeta: newMeta(EventTypeFinal, runID), Question: question, Answer: answer, Outcome: outcome, Steps: steps}
}

// MarshalEvent serializes an event for publishing.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// NewEventFromJSON parses a published event back into its concrete type.
func NewEventFromJSON(b []byte) (Event, error) {
	var peek struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &peek); err != nil {
		return nil, errors.Wrap(err, "peeking event type")
	}

	var e Event
	switch peek.Type {
	case EventTypeRoundStarted:
		e = &EventRoundStarted{}
	case EventTypeAssistant:
		e = &EventAssistantReply{}
	case EventTypeToolCalled:
		e = &EventToolCalled{}
	case EventTypeEvidence:
		e = &EventEvidenceAdded{}
	case EventTypeSnapshot:
		e = &EventSnapshotInjected{}
	case EventTypeFinal:
		e = &EventFinalAnswer{}
	default:
		return nil, errors.Errorf("unknown event type: %s", peek.Type)
	}
	if err := json.Unmarshal(b, e); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling %s event", peek.Type)
	}
	return e, nil
}

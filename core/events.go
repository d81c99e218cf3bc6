package core

import "time"

// ReportEvent is published by the event-backed Reporter for every reported
// task failure or lifecycle message.
type ReportEvent struct {
	ID       string    `json:"id"`
	TaskID   string    `json:"task_id,omitempty"`
	TaskName string    `json:"task_name,omitempty"`
	Message  string    `json:"message"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

func (e ReportEvent) EventID() string      { return e.ID }
func (e ReportEvent) EventName() string    { return "gorev.report" }
func (e ReportEvent) OccurredOn() time.Time { return e.At }

// QueueDrainedEvent is published after a ProcessAll pass over the pending
// operation queue.
type QueueDrainedEvent struct {
	ID        string    `json:"id"`
	Processed int       `json:"processed"`
	Remaining int       `json:"remaining"`
	At        time.Time `json:"at"`
}

func (e QueueDrainedEvent) EventID() string      { return e.ID }
func (e QueueDrainedEvent) EventName() string    { return "gorev.queue_drained" }
func (e QueueDrainedEvent) OccurredOn() time.Time { return e.At }

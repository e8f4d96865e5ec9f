package entities

import (
	"fmt"
	"time"
)

// QueueEventType represents the kind of semantic event derived from the feed
type QueueEventType string

const (
	// QueueEventBillAdded fires when a pending bill is appended to a known entry
	QueueEventBillAdded QueueEventType = "bill_added"

	// QueueEventDoctorMessage fires for an unread doctor-to-assistant message
	QueueEventDoctorMessage QueueEventType = "doctor_message"
)

// QueueEvent is a notification-worthy change detected between two
// generations of a scope's state. Events are transient: they live only for
// the session and are deduplicated by DedupKey.
type QueueEvent struct {
	Type        QueueEventType `json:"type"`
	EntryID     string         `json:"entry_id,omitempty"`
	PatientName string         `json:"patient_name,omitempty"`
	DoctorName  string         `json:"doctor_name,omitempty"`
	BillIndex   int            `json:"bill_index,omitempty"`
	Bill        *Bill          `json:"bill,omitempty"`
	Message     string         `json:"message,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewBillAddedEvent creates the event for a newly appended pending bill.
func NewBillAddedEvent(entry *QueueEntry, billIndex int, bill *Bill) *QueueEvent {
	return &QueueEvent{
		Type:        QueueEventBillAdded,
		EntryID:     entry.ID,
		PatientName: entry.PatientName,
		DoctorName:  entry.DoctorName,
		BillIndex:   billIndex,
		Bill:        bill,
		Timestamp:   time.Now(),
	}
}

// NewDoctorMessageEvent creates the event for a doctor-to-assistant message.
func NewDoctorMessageEvent(msg *DoctorMessage) *QueueEvent {
	return &QueueEvent{
		Type:       QueueEventDoctorMessage,
		EntryID:    msg.ID,
		DoctorName: msg.DoctorName,
		Message:    msg.Message,
		Timestamp:  time.Now(),
	}
}

// DedupKey returns the stable source identity used by the session seen-set:
// record id plus bill index for bills, the message document id for messages.
func (e *QueueEvent) DedupKey() string {
	if e.Type == QueueEventBillAdded {
		return fmt.Sprintf("%s#bill#%d", e.EntryID, e.BillIndex)
	}
	return fmt.Sprintf("msg#%s", e.EntryID)
}

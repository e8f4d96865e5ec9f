package entities

// MessageTypeBilling marks messages that duplicate bill notifications; the
// queue listener already surfaces those, so the message feed drops them.
const MessageTypeBilling = "billing"

// DoctorMessage is one append-only record on the doctor-to-assistant feed.
type DoctorMessage struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistant_id"`
	Message     string `json:"message"`
	DoctorName  string `json:"doctor_name"`
	Type        string `json:"type"`
	Read        bool   `json:"read"`
	CreatedAt   int64  `json:"createdAt"`
}

// Notifiable reports whether the message should reach the operator at all:
// billing messages and messages already acknowledged on another device are
// suppressed even on first sight.
func (m *DoctorMessage) Notifiable() bool {
	return m.Type != MessageTypeBilling && !m.Read
}

package entities

import (
	"encoding/json"
	"math"
	"time"
)

// VisitStatus represents the lifecycle status of a queue entry
type VisitStatus string

const (
	VisitStatusWaiting  VisitStatus = "WAITING"
	VisitStatusFinished VisitStatus = "FINISHED"
	VisitStatusCanceled VisitStatus = "CANCELED"
)

// Terminal reports whether the status ends a visit.
func (s VisitStatus) Terminal() bool {
	return s == VisitStatusFinished || s == VisitStatusCanceled
}

// VisitType represents the classification of a visit
type VisitType string

const (
	VisitTypeConsult  VisitType = "consult"
	VisitTypeFollowUp VisitType = "follow_up"
	VisitTypeAdvisory VisitType = "advisory"
)

// VisitSpeed represents how fast the patient expects to be seen
type VisitSpeed string

const (
	VisitSpeedNormal VisitSpeed = "normal"
	VisitSpeedUrgent VisitSpeed = "urgent"
)

// PaymentStatus represents the settlement state of a payment
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// PaymentMethod represents how a payment was settled
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

// ReferralSourceDefault is used when the patient did not name a referral source.
const ReferralSourceDefault = "general"

// legacyOrderBase offsets queue positions of entries without a creation
// timestamp past any epoch-ms value an entry can carry, so legacy entries
// sort after every timestamped one while keeping their relative order.
const legacyOrderBase = int64(math.MaxInt64 / 2)

// ConsultationPayment is the base consultation fee attached to every entry.
// The amount is fixed at entry creation; only status, method, paid-at and
// payer ever change, and status moves pending->paid exactly once.
type ConsultationPayment struct {
	Amount           float64       `json:"amount"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	ConsultationType VisitType     `json:"consultationType"`
	PaidAt           *time.Time    `json:"paidAt"`
	PaidBy           string        `json:"paidBy"`
}

// BillService is one line item on a doctor-issued bill.
type BillService struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// billServiceWire covers the heterogeneous shapes bills arrive in; older
// documents carry service_name instead of name and omit subtotal/quantity.
type billServiceWire struct {
	Name        string   `json:"name"`
	ServiceName string   `json:"service_name"`
	UnitPrice   *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Subtotal    *float64 `json:"subtotal"`
}

// UnmarshalJSON normalizes the wire shape into the canonical record, so no
// other component ever branches on field presence.
func (s *BillService) UnmarshalJSON(data []byte) error {
	var wire billServiceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	s.Name = wire.Name
	if s.Name == "" {
		s.Name = wire.ServiceName
	}

	if wire.UnitPrice != nil {
		s.UnitPrice = *wire.UnitPrice
	}

	s.Quantity = 1
	if wire.Quantity != nil && *wire.Quantity > 0 {
		s.Quantity = *wire.Quantity
	}

	if wire.Subtotal != nil {
		s.Subtotal = *wire.Subtotal
	} else {
		s.Subtotal = s.UnitPrice * float64(s.Quantity)
	}

	return nil
}

// Bill is a doctor-issued itemized charge. Bills are append-only on an
// entry; existing bills only ever change payment status/method in place.
type Bill struct {
	BillingID        string        `json:"billing_id"`
	ConsultationFee  float64       `json:"consultationFee"`
	ConsultationType string        `json:"consultationType"`
	Services         []BillService `json:"services"`
	TotalAmount      float64       `json:"totalAmount"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	PaidAt           *time.Time    `json:"paidAt"`
}

// QueueEntry is one patient visit on a scope's walk-in queue.
type QueueEntry struct {
	ID             string              `json:"id"`
	PatientName    string              `json:"patient_name"`
	PatientPhone   string              `json:"patient_phone"`
	DoctorID       string              `json:"doctor_id"`
	DoctorName     string              `json:"doctor_name"`
	ClinicID       string              `json:"clinic_id"`
	Date           string              `json:"date"`
	Time           string              `json:"time"`
	Status         VisitStatus         `json:"status"`
	Position       int                 `json:"position"`
	VisitType      VisitType           `json:"visit_type"`
	VisitSpeed     VisitSpeed          `json:"visit_speed"`
	Age            string              `json:"age"`
	Address        string              `json:"address"`
	ReferralSource string              `json:"referral_source"`
	CreatedAt      int64               `json:"createdAt"`
	Consultation   ConsultationPayment `json:"consultationPayment"`
	Bills          []Bill              `json:"bills"`
}

type queueEntryWire QueueEntry

// queueEntryAliases carries the legacy field variants.
type queueEntryAliases struct {
	queueEntryWire
	UserOrderInQueue *int `json:"user_order_in_queue"`
}

// UnmarshalJSON accepts both the current shape and legacy documents that
// store the queue position as user_order_in_queue.
func (e *QueueEntry) UnmarshalJSON(data []byte) error {
	var wire queueEntryAliases
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = QueueEntry(wire.queueEntryWire)
	if e.Position == 0 && wire.UserOrderInQueue != nil {
		e.Position = *wire.UserOrderInQueue
	}
	return nil
}

// OrderingKey returns the total-order key for the queue: creation timestamp
// in epoch ms when present, otherwise the position offset past every
// timestamped entry.
func (e *QueueEntry) OrderingKey() int64 {
	if e.CreatedAt > 0 {
		return e.CreatedAt
	}
	return legacyOrderBase + int64(e.Position)
}

// IsWaiting reports whether the entry is still in the queue.
func (e *QueueEntry) IsWaiting() bool {
	return e.Status == VisitStatusWaiting
}

// Urgent reports whether the visit carries the urgency flag.
func (e *QueueEntry) Urgent() bool {
	return e.VisitSpeed == VisitSpeedUrgent
}

// Scope returns the scope the entry belongs to.
func (e *QueueEntry) Scope() Scope {
	return Scope{ClinicID: e.ClinicID, DoctorID: e.DoctorID, Date: e.Date}
}

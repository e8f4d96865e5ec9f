package providers

import (
	"context"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
)

// ConsultationPaymentRecord is the ledger's view of a settled consultation.
type ConsultationPaymentRecord struct {
	DoctorID         string                 `json:"doctor_id"`
	PatientID        string                 `json:"patient_id"`
	PatientName      string                 `json:"patient_name"`
	PatientPhone     string                 `json:"patient_phone"`
	ClinicID         string                 `json:"clinic_id"`
	ConsultationType entities.VisitType     `json:"consultationType"`
	ConsultationFee  float64                `json:"consultationFee"`
	PaymentMethod    entities.PaymentMethod `json:"paymentMethod"`
}

// BillSettlement is the ledger's view of a settled doctor bill.
type BillSettlement struct {
	PaymentStatus entities.PaymentStatus `json:"paymentStatus"`
	PaymentMethod entities.PaymentMethod `json:"paymentMethod"`
	AmountPaid    float64                `json:"amountPaid"`
}

// LedgerProvider defines the interface to the secondary record store used
// for historical analytics and billing ledgers. Every write here is
// best-effort: the primary store has already committed before any of these
// are called, and failures must never surface to the operator.
type LedgerProvider interface {
	// RecordFinishedVisit posts the FINISHED projection of an entry.
	RecordFinishedVisit(ctx context.Context, record *entities.FinishedVisitRecord) error

	// RecordConsultationPayment posts a settled consultation payment.
	RecordConsultationPayment(ctx context.Context, record *ConsultationPaymentRecord) error

	// SettleBill marks a doctor-issued bill settled in the ledger.
	SettleBill(ctx context.Context, doctorID, billingID string, settlement *BillSettlement) error

	// GetDoctorSettings fetches a doctor's fee schedule. Read-only display
	// data; never authoritative for already-created entries.
	GetDoctorSettings(ctx context.Context, doctorID string) (*entities.DoctorSettings, error)
}

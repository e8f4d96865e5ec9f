package entities

// Doctor is a directory record owned elsewhere; the console only reads it.
type Doctor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DoctorSettings is the fee schedule served by the ledger API. It is
// display/default data only: fees already attached to entries never change
// when the schedule does.
type DoctorSettings struct {
	ConsultationFee float64  `json:"consultationFee"`
	FollowUpFee     float64  `json:"revisitFee"`
	AdvisoryFee     float64  `json:"estisharaFee"`
	UrgentFee       float64  `json:"urgentFee"`
	ReferralSources []string `json:"referralSources"`
}

// FeeFor returns the default fee for a visit classification. Urgent visits
// take the urgent fee regardless of classification.
func (s *DoctorSettings) FeeFor(visitType VisitType, speed VisitSpeed) float64 {
	if speed == VisitSpeedUrgent {
		return s.UrgentFee
	}
	switch visitType {
	case VisitTypeFollowUp:
		return s.FollowUpFee
	case VisitTypeAdvisory:
		return s.AdvisoryFee
	default:
		return s.ConsultationFee
	}
}

// FinishedVisitRecord is the denormalized projection pushed to the secondary
// store when an entry transitions to FINISHED.
type FinishedVisitRecord struct {
	PatientName  string      `json:"patient_name"`
	PatientPhone string      `json:"patient_phone"`
	PatientID    string      `json:"patient_id"`
	DoctorID     string      `json:"doctor_id"`
	DoctorName   string      `json:"doctor_name"`
	ClinicID     string      `json:"clinic_id"`
	Date         string      `json:"date"`
	Time         string      `json:"time"`
	Status       VisitStatus `json:"status"`
	VisitType    VisitType   `json:"visit_type"`
	VisitSpeed   VisitSpeed  `json:"visit_speed"`
	Age          string      `json:"age"`
	Address      string      `json:"address"`
	Position     int         `json:"user_order_in_queue"`
	AssistantID  string      `json:"assistant_id"`
}

// NewFinishedVisitRecord builds the projection from a queue entry.
func NewFinishedVisitRecord(entry *QueueEntry, assistantID string) *FinishedVisitRecord {
	return &FinishedVisitRecord{
		PatientName:  entry.PatientName,
		PatientPhone: entry.PatientPhone,
		PatientID:    entry.ID,
		DoctorID:     entry.DoctorID,
		DoctorName:   entry.DoctorName,
		ClinicID:     entry.ClinicID,
		Date:         entry.Date,
		Time:         entry.Time,
		Status:       VisitStatusFinished,
		VisitType:    entry.VisitType,
		VisitSpeed:   entry.VisitSpeed,
		Age:          entry.Age,
		Address:      entry.Address,
		Position:     entry.Position,
		AssistantID:  assistantID,
	}
}

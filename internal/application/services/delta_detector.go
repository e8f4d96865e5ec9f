package services

import (
	"github.com/nowaiting/clinic-console/internal/domain/entities"
)

// DetectBillAdded compares a scope's previous generation against the new
// one and returns one BillAdded event per newly appended pending bill.
//
// Entries absent from the baseline never emit: only growth relative to a
// known baseline counts, which keeps the initial subscribe and every
// reconnect replay silent. Bills appended already paid (backfills) are
// skipped too.
func DetectBillAdded(baseline map[string]*entities.QueueEntry, entries []*entities.QueueEntry) []*entities.QueueEvent {
	if baseline == nil {
		return nil
	}

	var events []*entities.QueueEvent
	for _, entry := range entries {
		prev, known := baseline[entry.ID]
		if !known {
			continue
		}

		prevCount := len(prev.Bills)
		if len(entry.Bills) <= prevCount {
			continue
		}

		for i := prevCount; i < len(entry.Bills); i++ {
			bill := entry.Bills[i]
			if bill.PaymentStatus != entities.PaymentStatusPending {
				continue
			}
			events = append(events, entities.NewBillAddedEvent(entry, i, &bill))
		}
	}

	return events
}

// Baseline builds the id-keyed mapping stored as the previous generation.
func Baseline(entries []*entities.QueueEntry) map[string]*entities.QueueEntry {
	baseline := make(map[string]*entities.QueueEntry, len(entries))
	for _, entry := range entries {
		baseline[entry.ID] = entry
	}
	return baseline
}

package services

import (
	"sort"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
)

// OrderEntries computes the display/serving order for a scope's entries:
// creation timestamp ascending, with legacy untimestamped entries sorting
// after every timestamped one by scaled queue position. Record id breaks
// ties so the order is a strict total order even on equal keys.
//
// The input slice is not modified; a new ordered slice is returned.
func OrderEntries(entries []*entities.QueueEntry) []*entities.QueueEntry {
	ordered := make([]*entities.QueueEntry, len(entries))
	copy(ordered, entries)

	sort.Slice(ordered, func(i, j int) bool {
		ki, kj := ordered[i].OrderingKey(), ordered[j].OrderingKey()
		if ki != kj {
			return ki < kj
		}
		return ordered[i].ID < ordered[j].ID
	})

	return ordered
}

// QueueStats summarizes a scope's queue for the console header.
type QueueStats struct {
	Waiting  int `json:"waiting"`
	Finished int `json:"finished"`
	Canceled int `json:"canceled"`
	Total    int `json:"total"`
}

// Stats counts entries per lifecycle status.
func Stats(entries []*entities.QueueEntry) QueueStats {
	stats := QueueStats{Total: len(entries)}
	for _, entry := range entries {
		switch entry.Status {
		case entities.VisitStatusWaiting:
			stats.Waiting++
		case entities.VisitStatusFinished:
			stats.Finished++
		case entities.VisitStatusCanceled:
			stats.Canceled++
		}
	}
	return stats
}

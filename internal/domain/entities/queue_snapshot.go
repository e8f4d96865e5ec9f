package entities

// QueueSnapshot is one full-collection generation of a scope as delivered by
// the change feed: the complete current set of entries, in no particular
// order. Ordering is derived downstream, never trusted from the wire.
type QueueSnapshot struct {
	Scope   Scope         `json:"scope"`
	Entries []*QueueEntry `json:"entries"`
}

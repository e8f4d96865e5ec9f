package entities

import "time"

// OrderPointer is the "now serving" number for a scope. It is created
// lazily: a scope with no pointer document reads as 0, and once advanced
// past 1 it never returns to 0 (decrement floors at 1).
type OrderPointer struct {
	Scope        Scope     `json:"scope"`
	CurrentOrder int       `json:"currentOrder"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrderPointerSnapshot is the single-document snapshot delivered by the
// change feed for a scope's pointer.
type OrderPointerSnapshot struct {
	CurrentOrder int `json:"currentOrder"`
}

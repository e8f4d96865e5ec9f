package services

import (
	"context"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/repositories"
)

// OrderPointerService owns the "now serving" pointer operations. Every
// write is last-write-wins against the primary store; the console never
// shows an optimistic value, it waits for the feed echo.
type OrderPointerService struct {
	repo repositories.OrderPointerRepository
}

// NewOrderPointerService creates a new pointer service.
func NewOrderPointerService(repo repositories.OrderPointerRepository) *OrderPointerService {
	return &OrderPointerService{repo: repo}
}

// Increment advances the pointer by one. Always allowed.
func (s *OrderPointerService) Increment(ctx context.Context, scope entities.Scope) (int, error) {
	current, err := s.repo.Get(ctx, scope)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := s.repo.Set(ctx, scope, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Decrement moves the pointer back by one, flooring at 1. A pointer that
// has never been advanced reads 0 and stays 0: the display distinguishes
// "never started" (0) from "serving number 1", so the floor check is
// against 1, not 0.
func (s *OrderPointerService) Decrement(ctx context.Context, scope entities.Scope) (int, error) {
	current, err := s.repo.Get(ctx, scope)
	if err != nil {
		return 0, err
	}
	if current <= 1 {
		return current, nil
	}
	next := current - 1
	if err := s.repo.Set(ctx, scope, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Reset sets the pointer to 1.
func (s *OrderPointerService) Reset(ctx context.Context, scope entities.Scope) (int, error) {
	if err := s.repo.Set(ctx, scope, 1); err != nil {
		return 0, err
	}
	return 1, nil
}

// AutoAdvance moves the pointer to the smallest WAITING queue position
// strictly greater than the current value, skipping the entry that just
// transitioned. When nothing waits ahead of the pointer it is left
// untouched. Returns the resulting value and whether a write happened.
func (s *OrderPointerService) AutoAdvance(ctx context.Context, scope entities.Scope, entries []*entities.QueueEntry, transitionedID string) (int, bool, error) {
	current, err := s.repo.Get(ctx, scope)
	if err != nil {
		return 0, false, err
	}

	next := 0
	for _, entry := range entries {
		if entry.ID == transitionedID || !entry.IsWaiting() {
			continue
		}
		if entry.Position <= current {
			continue
		}
		if next == 0 || entry.Position < next {
			next = entry.Position
		}
	}

	if next == 0 {
		return current, false, nil
	}

	if err := s.repo.Set(ctx, scope, next); err != nil {
		return 0, false, err
	}
	return next, true, nil
}

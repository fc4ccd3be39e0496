package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Service applies cart mutations on top of the Store. Every mutation is a
// read-modify-write of the whole blob, so the caller must serialize calls
// for the same session.
type Service struct {
	Store *Store
}

// SetQuantity sets the line for item.ID to qty units. A missing line is
// created from item. qty <= 0 removes the line.
func (s *Service) SetQuantity(ctx context.Context, sessionID string, item Item, qty int) (Cart, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("cart service not configured")
	}
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return nil, fmt.Errorf("item id is required: %w", ErrInvalidInput)
	}
	current, err := s.Store.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next := WithQuantity(current, item, qty)
	if err := s.Store.Write(ctx, sessionID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Remove deletes the line for id. Removing an absent line still writes and broadcasts.
func (s *Service) Remove(ctx context.Context, sessionID, id string) (Cart, error) {
	return s.SetQuantity(ctx, sessionID, Item{ID: id}, 0)
}

// Clear empties the session cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return s.Store.Clear(ctx, sessionID)
}

// Get returns the current session cart.
func (s *Service) Get(ctx context.Context, sessionID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("cart service not configured")
	}
	return s.Store.Read(ctx, sessionID)
}

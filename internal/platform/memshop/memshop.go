// Package memshop is an in-memory ticket counter. It backs the games
// on platforms that have no native item shop: tickets exist only as
// shop state, players buy them with a chat command, and the sales log
// is the authoritative entry record.
package memshop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chat-games-bot/internal/model"
	"chat-games-bot/internal/platform"
)

var (
	// ErrSlotHeld is returned when a reservation already exists.
	ErrSlotHeld = errors.New("memshop: slot already reserved")
	// ErrNoListing is returned for purchases with no active listing.
	ErrNoListing = errors.New("memshop: no tickets listed")
	// ErrSoldOut is returned when a purchase exceeds the remaining tickets.
	ErrSoldOut = errors.New("memshop: not enough tickets remaining")
)

// Shop implements platform.Shop with in-memory state.
type Shop struct {
	mu        sync.Mutex
	stock     int
	held      bool
	handle    platform.SlotHandle
	nextID    int
	listed    int
	price     int64
	purchases []model.Purchase
	clock     func() time.Time
}

// New returns a Shop with the given starting ticket stock.
func New(stock int) *Shop {
	return &Shop{stock: stock, clock: time.Now}
}

func (s *Shop) ReserveSlot(_ context.Context, quantity int, price int64) (platform.SlotHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held {
		return "", ErrSlotHeld
	}
	if quantity > s.stock {
		return "", fmt.Errorf("memshop: %d tickets requested, %d in stock", quantity, s.stock)
	}

	s.nextID++
	s.held = true
	s.handle = platform.SlotHandle(fmt.Sprintf("slot-%d", s.nextID))
	s.stock -= quantity
	s.listed = quantity
	s.price = price
	s.purchases = nil
	return s.handle, nil
}

func (s *Shop) ReleaseSlot(_ context.Context, h platform.SlotHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkHandle(h); err != nil {
		return err
	}
	s.stock += s.listed - len(s.purchases)
	s.held = false
	s.listed = 0
	return nil
}

func (s *Shop) Remaining(_ context.Context, h platform.SlotHandle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkHandle(h); err != nil {
		return 0, err
	}
	return s.listed - len(s.purchases), nil
}

func (s *Shop) SalesLog(_ context.Context, h platform.SlotHandle) ([]model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkHandle(h); err != nil {
		return nil, err
	}
	out := make([]model.Purchase, len(s.purchases))
	copy(out, s.purchases)
	return out, nil
}

func (s *Shop) Restock(_ context.Context, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stock += quantity
	log.Info().Int("quantity", quantity).Int("stock", s.stock).Msg("Restocked tickets")
	return nil
}

// Buy records a ticket purchase against the active listing. Each call
// buys tickets one at a time up to quantity so the sales log preserves
// purchase order for winner selection.
func (s *Shop) Buy(buyer string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held {
		return ErrNoListing
	}
	if quantity < 1 {
		quantity = 1
	}
	if len(s.purchases)+quantity > s.listed {
		return ErrSoldOut
	}
	now := s.clock()
	for i := 0; i < quantity; i++ {
		s.purchases = append(s.purchases, model.Purchase{
			Buyer:    strings.ToLower(strings.TrimSpace(buyer)),
			Quantity: 1,
			Item:     "game ticket",
			Time:     now,
		})
	}
	return nil
}

// Stock reports the unlisted ticket inventory.
func (s *Shop) Stock() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock
}

func (s *Shop) checkHandle(h platform.SlotHandle) error {
	if !s.held || h != s.handle {
		return fmt.Errorf("memshop: unknown slot handle %q", h)
	}
	return nil
}

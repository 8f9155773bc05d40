// Package platform defines the contracts the game core consumes from
// the host chat platform. The core treats all of these as opaque
// collaborators: messages are fire-and-forget, the shop is a ticket
// counter, and prize delivery is the only call whose failure matters.
package platform

import (
	"context"

	"chat-games-bot/internal/model"
)

// Messenger delivers chat text. Failures are logged by implementations
// and never surfaced to callers.
type Messenger interface {
	// SendChannel posts to the games channel.
	SendChannel(text string)
	// SendPrivate sends a private message to one player.
	SendPrivate(recipient, text string)
}

// Mailer delivers in-game mail, optionally with attached currency.
// A delivery failure is returned so the caller can report it, but it
// must never abort the surrounding game phase.
type Mailer interface {
	SendPrize(ctx context.Context, recipient, text string, amount int64) error
}

// SlotHandle identifies a reserved set of sellable ticket slots.
type SlotHandle string

// Shop is the ticket-selling mechanism. One slot set exists; it is
// exclusively held by the active game between reserve and release.
type Shop interface {
	// ReserveSlot lists quantity tickets at the given price and returns
	// a handle for them. Fails if the slot set is already held.
	ReserveSlot(ctx context.Context, quantity int, price int64) (SlotHandle, error)
	// ReleaseSlot delists whatever remains of the reserved tickets.
	ReleaseSlot(ctx context.Context, h SlotHandle) error
	// Remaining reports how many reserved tickets are still unsold.
	Remaining(ctx context.Context, h SlotHandle) (int, error)
	// SalesLog returns the ordered purchase records for the current
	// reservation, oldest first.
	SalesLog(ctx context.Context, h SlotHandle) ([]model.Purchase, error)
	// Restock pre-purchases ticket inventory (admin command).
	Restock(ctx context.Context, quantity int) error
}

// Trivia supplies one question with its real answer.
type Trivia interface {
	FetchQuestion(ctx context.Context) (model.Question, error)
}

// Exec runs a host CLI command on behalf of an administrator.
type Exec interface {
	Run(command string) (string, error)
}

// Package game defines the session contract shared by the chat games.
// A session owns its own phase state machine and drives itself through
// scheduled transitions; the orchestrator only ever sees the Manager
// callbacks and the Session surface below.
package game

import (
	"context"

	"chat-games-bot/internal/model"
)

// Phase is a session's position in its state machine.
type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseActive    Phase = "active"
	PhaseEntry     Phase = "entry"
	PhaseAnswering Phase = "answering"
	PhaseVoting    Phase = "voting"
	PhaseDrawing   Phase = "drawing"
	PhaseFinished  Phase = "finished"
)

// Manager is the orchestrator surface a session may touch: narrow
// messaging operations and the jackpot side of the ledger. Sessions
// never address the chat platform or the ledger directly.
type Manager interface {
	SendChannel(text string)
	SendPrivate(recipient, text string)
	// SendPrize delivers mail with attached currency. An error means
	// that one delivery failed; the phase carries on regardless.
	SendPrize(recipient, text string, amount int64) error
	// ReportAdminError surfaces a collaborator failure to the
	// administrator channel.
	ReportAdminError(scope string, err error)

	AddJackpot(amount int64)
	JackpotOdds() int64
	Jackpot() int64
	WinJackpot() int64
	BumpStreak()
	GamesCount() int64

	// SessionDone tells the orchestrator the session reached a terminal
	// state. The orchestrator clears the active slot, bumps the games
	// counter and persists the ledger. Exactly one call per session.
	SessionDone(kind model.GameKind)
}

// Session is one in-progress game.
type Session interface {
	Kind() model.GameKind
	Host() string
	Prize() int64
	Phase() Phase
	// Start moves the session out of setup. A returned error means
	// setup failed closed: nothing was announced and the session never
	// becomes visible.
	Start(ctx context.Context) error
	// HandleChat receives channel text while the session is active.
	HandleChat(sender, text string)
	// HandleMail receives private mail text while the session is active.
	HandleMail(sender, content string)
	// Status describes the session for the games status command.
	Status() string
	// Stop is the emergency cancel: all scheduled transitions are
	// cancelled, reserved resources released, and SessionDone reported.
	Stop()
}

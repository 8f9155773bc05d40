package orchestrator

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"

	"chat-games-bot/internal/game"
	"chat-games-bot/internal/game/decoy"
	"chat-games-bot/internal/game/raffle"
	"chat-games-bot/internal/model"
)

const (
	maxRollDice  = 20
	maxRollSides = 1000
)

// dispatch routes one command line. Host and decoy requests are
// rejected outright while any session is active.
func (o *Orchestrator) dispatch(sender, text string) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return
	}
	command := strings.ToLower(parts[0])

	if (command == "host" || command == "decoy") && o.activeSession() != nil {
		o.msg.SendPrivate(sender, "game already running")
		return
	}

	switch command {
	case "host":
		o.handleHost(sender, parts, model.KindRaffle)
	case "decoy":
		o.handleHost(sender, parts, model.KindDecoy)
	case "roll":
		o.handleRoll(sender, parts)
	case "games":
		o.handleGames(sender, parts)
	case "howmuchmeat":
		o.msg.SendPrivate(sender, fmt.Sprintf("i have %s meat, %s is jackpot, %s is public..",
			model.FormatMeat(o.ledger.PublicPool()+o.ledger.TotalDonorBalance()),
			model.FormatMeat(o.ledger.Jackpot()),
			model.FormatMeat(o.ledger.PublicPool())))
	case "hostlimit":
		o.handleHostLimit(sender)
	case "howmanygames":
		o.msg.SendPrivate(sender, fmt.Sprintf("i have hosted %s ggames so far!!",
			model.FormatMeat(o.ledger.GamesCount())))
	case "jackpot":
		o.msg.SendPrivate(sender, fmt.Sprintf(
			"the jackpot is currently at %s meat and was last won %s ggames ago.",
			model.FormatMeat(o.ledger.Jackpot()),
			model.FormatMeat(o.ledger.JackpotStreak())))
	case "help":
		o.msg.SendPrivate(sender, "help me add this help message")
	case "guess":
		// Consumed by the active session's chat handler.
	case "setdonorlevel":
		o.handleSetDonorLevel(sender, parts)
	case "setjackpot":
		o.handleSetJackpot(sender, parts)
	case "emergency":
		if o.cfg.IsAdmin(sender) {
			o.EmergencyReset()
		}
	case "restock":
		o.handleRestock(sender, parts)
	case "exec":
		o.handleExec(sender, parts)
	case "global":
		o.handleGlobal(sender)
	case "donor":
		o.handleDonor(sender, parts)
	case "send":
		o.handleSend(sender, parts)
	default:
		o.msg.SendPrivate(sender, "??? i dont know that command")
	}
}

// handleHost funds and starts a game of the given kind.
func (o *Orchestrator) handleHost(sender string, parts []string, kind model.GameKind) {
	totalAvailable := o.ledger.PublicPool() + o.ledger.TotalDonorBalance()

	if len(parts) < 2 {
		o.msg.SendPrivate(sender, fmt.Sprintf(
			"i dont have enough meat or the prize amount is invalid. (i have %s meat)",
			model.FormatMeat(totalAvailable)))
		return
	}

	prize := ParseAmount(parts[1])
	if prize < o.cfg.Ledger.MinPrize {
		o.msg.SendPrivate(sender, fmt.Sprintf("invalid prize amount (must be > %s)",
			model.FormatMeat(o.cfg.Ledger.MinPrize)))
		return
	}

	if totalAvailable+50 < prize {
		o.msg.SendPrivate(sender, fmt.Sprintf(
			"i dont have enough meat or the prize amount is invalid. (i have %s meat)",
			model.FormatMeat(totalAvailable)))
		return
	}

	debit, err := o.ledger.Authorize(sender, prize)
	if err != nil {
		o.msg.SendPrivate(sender,
			"...not have enough hosting funds. u may host up to 300k per day from public pool or use ur allocated funds from donations..")
		return
	}

	o.startSession(sender, prize, kind, func() { o.ledger.Refund(debit) })
}

// handleRoll handles "roll 1d<n>" plus the legacy NdM form.
func (o *Orchestrator) handleRoll(sender string, parts []string) {
	const unsupported = "sorry i dont support anything other than 1d rolls (in development)"
	if len(parts) < 2 {
		o.msg.SendPrivate(sender, unsupported)
		return
	}

	spec := strings.ToLower(parts[1])
	if strings.HasPrefix(spec, "1d") {
		sides := ParseAmount(spec[2:])
		if sides <= 0 {
			o.msg.SendPrivate(sender, unsupported)
			return
		}
		result := rand.Int63n(sides) + 1
		o.msg.SendPrivate(sender, fmt.Sprintf("you rolled %s out of %s.",
			model.FormatMeat(result), model.FormatMeat(sides)))
		return
	}

	count, sides, ok := parseRollSpec(spec)
	if !ok {
		o.msg.SendPrivate(sender, unsupported)
		return
	}
	if count > maxRollDice || sides > maxRollSides {
		o.msg.SendPrivate(sender, fmt.Sprintf("Roll too large. Max %d dice, %d sides each.",
			maxRollDice, maxRollSides))
		return
	}
	if count < 1 || sides < 1 {
		o.msg.SendPrivate(sender, unsupported)
		return
	}

	rolls := make([]string, count)
	var total int64
	for i := range rolls {
		r := rand.Int63n(int64(sides)) + 1
		rolls[i] = fmt.Sprintf("%d", r)
		total += r
	}
	o.msg.SendPrivate(sender, fmt.Sprintf("Rolled: [%s] = %d", strings.Join(rolls, ","), total))
}

// handleGames handles "games status" and "games stats".
func (o *Orchestrator) handleGames(sender string, parts []string) {
	if len(parts) < 2 {
		return
	}
	switch strings.ToLower(parts[1]) {
	case "status":
		status := "Game Status: "
		if s := o.activeSession(); s != nil {
			switch s.Kind() {
			case model.KindRaffle:
				status += fmt.Sprintf("Raffle active (%s)", s.Status())
			case model.KindDecoy:
				status += fmt.Sprintf("Decoy's Dilemma active (%s)", s.Status())
			}
		} else {
			status += "No games running"
		}
		o.msg.SendPrivate(sender, status)
	case "stats":
		o.msg.SendPrivate(sender, fmt.Sprintf(
			"Games: %d | Public Pool: %d | Jackpot: %d (streak: %d)",
			o.ledger.GamesCount(), o.ledger.PublicPool(),
			o.ledger.Jackpot(), o.ledger.JackpotStreak()))
	}
}

func (o *Orchestrator) handleHostLimit(sender string) {
	msg := fmt.Sprintf("you have %s daily free host remaining. ",
		model.FormatMeat(o.ledger.DailyRemaining(sender)))
	if personal, ok := o.ledger.DonorBalance(sender); ok && personal > 0 {
		msg += fmt.Sprintf(" you also have %s meat allocated.. thank you for donating!!",
			model.FormatMeat(personal))
	}
	o.msg.SendPrivate(sender, msg)
}

func (o *Orchestrator) handleSetDonorLevel(sender string, parts []string) {
	if !o.cfg.IsAdmin(sender) {
		return
	}
	if len(parts) < 3 {
		return
	}
	amount := ParseAmount(parts[1])
	if amount <= 0 && parts[1] != "0" {
		o.msg.SendPrivate(sender, "invalid amount")
		return
	}
	name := strings.ToLower(strings.Join(parts[2:], " "))
	o.ledger.SetDonorBalance(name, amount)
	o.persist()
	o.msg.SendPrivate(sender, fmt.Sprintf("set %s donor level to %s", name, model.FormatMeat(amount)))
}

func (o *Orchestrator) handleSetJackpot(sender string, parts []string) {
	if !o.cfg.IsAdmin(sender) {
		return
	}
	if len(parts) != 2 {
		return
	}
	amount := ParseAmount(parts[1])
	if amount <= 0 && parts[1] != "0" {
		o.msg.SendPrivate(sender, "invalid amount")
		return
	}
	o.ledger.SetJackpot(amount)
	o.persist()
	o.msg.SendPrivate(sender, "set jackpot to "+model.FormatMeat(amount))
}

func (o *Orchestrator) handleRestock(sender string, parts []string) {
	if !o.cfg.IsAdmin(sender) {
		o.msg.SendPrivate(sender, "hey hey hey wait.. you cant tell me what to do...")
		return
	}
	quantity := 100
	if len(parts) > 1 {
		if n := ParseAmount(parts[1]); n > 0 {
			quantity = int(n)
		}
	}
	o.msg.SendPrivate(sender, fmt.Sprintf("attempting to restock %d raffle tickets", quantity))
	if err := o.shop.Restock(o.ctx, quantity); err != nil {
		o.msg.SendPrivate(sender, "failed to restock tickets - check meat/availability")
		return
	}
	o.msg.SendPrivate(sender, fmt.Sprintf("successfully restocked %d raffle tickets", quantity))
}

func (o *Orchestrator) handleExec(sender string, parts []string) {
	if !o.cfg.IsAdmin(sender) {
		o.msg.SendPrivate(sender, "hey hey hey wait.. you cant tell me what to do...")
		return
	}
	if len(parts) < 2 {
		return
	}
	if o.exec == nil {
		o.msg.SendPrivate(sender, "exec is not available on this platform")
		return
	}
	result, err := o.exec.Run(strings.Join(parts[1:], " "))
	if err != nil {
		result = "error: " + err.Error()
	}
	o.msg.SendPrivate(sender, result)
}

func (o *Orchestrator) handleGlobal(sender string) {
	if !o.cfg.IsAdmin(sender) {
		return
	}
	var b strings.Builder
	b.WriteString("Global Game State:\n")
	fmt.Fprintf(&b, "Public Pool: %s\n", model.FormatMeat(o.ledger.PublicPool()))
	fmt.Fprintf(&b, "Jackpot: %s\n", model.FormatMeat(o.ledger.Jackpot()))
	active := 0
	if o.activeSession() != nil {
		active = 1
	}
	fmt.Fprintf(&b, "Active Games: %d\n", active)
	fmt.Fprintf(&b, "Games Hosted: %s\n", model.FormatMeat(o.ledger.GamesCount()))
	fmt.Fprintf(&b, "Jackpot Streak: %s", model.FormatMeat(o.ledger.JackpotStreak()))
	o.msg.SendPrivate(sender, b.String())
}

func (o *Orchestrator) handleDonor(sender string, parts []string) {
	if !o.cfg.IsAdmin(sender) {
		return
	}
	if len(parts) < 2 {
		o.msg.SendPrivate(sender, "please provide a name")
		return
	}
	name := strings.ToLower(strings.Join(parts[1:], " "))
	if allocated, ok := o.ledger.DonorBalance(name); ok {
		o.msg.SendPrivate(sender, fmt.Sprintf(
			"%s has %s meat available for personal hosting.",
			name, model.FormatMeat(allocated)))
		return
	}
	o.msg.SendPrivate(sender, name+" is not a donor.")
}

func (o *Orchestrator) handleSend(sender string, parts []string) {
	if !o.cfg.IsAdmin(sender) {
		return
	}
	if len(parts) < 2 {
		return
	}
	amount := ParseAmount(parts[1])
	if amount <= 0 {
		o.msg.SendPrivate(sender, "invalid amount")
		return
	}
	if err := o.SendPrize(sender, "debug", amount); err != nil {
		log.Warn().Err(err).Msg("Debug send failed")
	}
}

// startSession builds and starts the funded session. Split out of
// handleHost so the debit refund on setup failure is in one place.
func (o *Orchestrator) startSession(sender string, prizeAmount int64, kind model.GameKind, refund func()) {
	var session game.Session
	switch kind {
	case model.KindRaffle:
		session = raffle.New(sender, prizeAmount, o, o.shop, raffle.Config{
			Duration:    o.cfg.Games.Raffle.Duration,
			DrawBuffer:  o.cfg.Games.Raffle.DrawBuffer,
			TicketSlots: o.cfg.Games.Raffle.TicketSlots,
			TicketPrice: o.cfg.Games.Raffle.TicketPrice,
		})
	case model.KindDecoy:
		session = decoy.New(sender, prizeAmount, o, o.shop, o.trivia, decoy.Config{
			EntryWindow:  o.cfg.Games.Decoy.EntryWindow,
			AnswerWindow: o.cfg.Games.Decoy.AnswerWindow,
			VoteWindow:   o.cfg.Games.Decoy.VoteWindow,
			PhaseBuffer:  o.cfg.Games.Decoy.PhaseBuffer,
			MinPlayers:   o.cfg.Games.Decoy.MinPlayers,
			MaxAnswerLen: o.cfg.Games.Decoy.MaxAnswerLen,
			TicketSlots:  o.cfg.Games.Decoy.TicketSlots,
		})
	}

	if !o.setActive(session) {
		refund()
		o.msg.SendPrivate(sender, "game already running")
		return
	}

	if err := session.Start(o.ctx); err != nil {
		o.clearActive()
		refund()
		log.Warn().Err(err).Str("host", sender).Str("kind", string(kind)).Msg("Session setup failed")
		o.msg.SendPrivate(sender, fmt.Sprintf(
			"i dont have enough meat or prize amt is invalid. (i have %s meat, %s is jackpot, %s is public)",
			model.FormatMeat(o.ledger.PublicPool()+o.ledger.TotalDonorBalance()),
			model.FormatMeat(o.ledger.Jackpot()),
			model.FormatMeat(o.ledger.PublicPool())))
		return
	}

	o.persist()
}

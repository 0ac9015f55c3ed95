package handler

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/game"
	"warzone-bot/internal/service"
)

// RankingHandler handles ranking-related commands.
type RankingHandler struct {
	rankingService *service.RankingService
	clock          game.Clock
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService, clock game.Clock) *RankingHandler {
	if clock == nil {
		clock = game.RealClock{}
	}
	return &RankingHandler{
		rankingService: rankingService,
		clock:          clock,
	}
}

var medals = []string{"🥇", "🥈", "🥉"}

func rankLabel(i int) string {
	if i < len(medals) {
		return medals[i]
	}
	return fmt.Sprintf("%d.", i+1)
}

// HandleTop handles the /top command.
// Displays the top 10 players by level, then experience.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	players, err := h.rankingService.GetTopByLevel(ctx, 10)
	if err != nil {
		return c.Reply(errorText(err))
	}

	if len(players) == 0 {
		return c.Reply("📊 No players yet")
	}

	msg := "🏆 Top Commanders\n"
	msg += "━━━━━━━━━━━━━━━\n"
	for i, p := range players {
		msg += fmt.Sprintf("%s %s: level %d (%d XP)\n", rankLabel(i), p.DisplayName(), p.Level, p.Experience)
	}
	msg += "━━━━━━━━━━━━━━━"

	return c.Reply(msg)
}

// HandleRaiders handles the /raiders command.
// Displays today's top 10 players by loot taken in attacks.
func (h *RankingHandler) HandleRaiders(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	raiders, err := h.rankingService.GetDailyRaiders(ctx, h.clock.Now(), 10)
	if err != nil {
		return c.Reply(errorText(err))
	}

	msg := "🏴‍☠️ Today's Raiders\n"
	msg += "━━━━━━━━━━━━━━━\n"
	if len(raiders) == 0 {
		msg += "No raids today\n"
	}
	for i, r := range raiders {
		name := r.Username
		if name == "" {
			name = fmt.Sprintf("Player%d", r.PlayerID)
		} else {
			name = "@" + name
		}
		msg += fmt.Sprintf("%s %s: %d💰 %d💎 in %d attacks\n", rankLabel(i), name, r.Coins, r.Gems, r.Attacks)
	}
	msg += "━━━━━━━━━━━━━━━"

	return c.Reply(msg)
}

package handler

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/game"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
	"warzone-bot/internal/service"
)

// PoolStats reports connection pool usage for /status.
type PoolStats interface {
	Summary() db.StatsSummary
}

// AdminHandler handles admin-related commands.
// Callers are already filtered by the admin middleware.
type AdminHandler struct {
	admin     *service.AdminService
	pool      PoolStats
	backupDir string
	clock     game.Clock
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *service.AdminService, pool PoolStats, backupDir string, clock game.Clock) *AdminHandler {
	if clock == nil {
		clock = game.RealClock{}
	}
	return &AdminHandler{
		admin:     admin,
		pool:      pool,
		backupDir: backupDir,
		clock:     clock,
	}
}

// HandleGift handles the /gift command.
// Format: /gift <user_id> coin|gem|point|xp <amount>
func (h *AdminHandler) HandleGift(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, res, amount, err := parseGiftArgs(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	p, err := h.admin.Gift(ctx, sender.ID, targetID, res, amount)
	if err != nil {
		return c.Reply(errorText(err))
	}

	return c.Reply(fmt.Sprintf(
		"✅ Gift sent\n\n"+
			"👤 Player: %s (ID: %d)\n"+
			"➕ Added: %d %s\n"+
			"💼 Now: %d💰 %d💎 %d ZP, level %d (%d XP)",
		p.DisplayName(), targetID, amount, res,
		p.Coins, p.Gems, p.Points, p.Level, p.Experience,
	))
}

// parseGiftArgs parses: <user_id> <resource> <amount>
func parseGiftArgs(args []string) (int64, model.Resource, int64, error) {
	if len(args) < 3 {
		return 0, "", 0, fmt.Errorf("❌ Usage: /gift <user_id> coin|gem|point|xp <amount>\nExample: /gift 123456789 coin 500")
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, "", 0, fmt.Errorf("❌ The user id must be a number")
	}

	res, ok := model.ParseResource(args[1])
	if !ok {
		return 0, "", 0, fmt.Errorf("%s", FailureText(action.CodeUnknownResource))
	}

	amount, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || amount <= 0 {
		return 0, "", 0, fmt.Errorf("%s", FailureText(action.CodeInvalidAmount))
	}

	return targetID, res, amount, nil
}

// HandleSetTier handles the /settier command.
// Format: /settier <user_id> <tier> <value>
func (h *AdminHandler) HandleSetTier(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 3 {
		return c.Reply("❌ Usage: /settier <user_id> miner|fighter|defense_missile|defense_electronic|defense_antifighter <value>")
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ The user id must be a number")
	}
	value, err := strconv.Atoi(args[2])
	if err != nil {
		return c.Reply(FailureText(action.CodeInvalidTier))
	}

	tier := model.TierName(args[1])
	if err := h.admin.SetTier(ctx, sender.ID, targetID, tier, value); err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(fmt.Sprintf("✅ Set %s of %d to %d", tier, targetID, value))
}

// HandleStatus handles the /status command.
func (h *AdminHandler) HandleStatus(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	st, err := h.admin.Status(ctx, game.NowUnix(h.clock))
	if err != nil {
		return c.Reply(errorText(err))
	}

	msg := "📈 Status\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("👥 Players: %d\n", st.Players)
	msg += fmt.Sprintf("⚔️ Attacks (24h): %d\n", st.AttacksLast24)
	if h.pool != nil {
		ps := h.pool.Summary()
		msg += fmt.Sprintf("🗄️ DB conns: %d total, %d idle, %d in use, %d max\n",
			ps.TotalConns, ps.IdleConns, ps.AcquiredConns, ps.MaxConns)
	}
	msg += "━━━━━━━━━━━━━━━"
	return c.Reply(msg)
}

// HandleBackup handles the /backup command.
// Writes a snapshot file and sends it back as a document.
func (h *AdminHandler) HandleBackup(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	path, err := h.admin.Backup(ctx, h.backupDir, h.clock.Now())
	if err != nil {
		log.Error().Err(err).Int64("admin_id", sender.ID).Msg("Backup failed")
		return c.Reply(FailureText(action.CodeInternal))
	}

	doc := &tele.Document{
		File:     tele.FromDisk(path),
		FileName: filepath.Base(path),
		Caption:  "🗄️ Backup " + filepath.Base(path),
	}
	return c.Reply(doc)
}

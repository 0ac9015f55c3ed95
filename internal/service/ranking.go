package service

import (
	"context"
	"time"

	"warzone-bot/internal/model"
	"warzone-bot/internal/repository"
)

// RankingService handles leaderboards.
type RankingService struct {
	players  *repository.PlayerRepository
	attacks  *repository.AttackRepository
	journal  *repository.LedgerRepository
	timezone *time.Location
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(
	players *repository.PlayerRepository,
	attacks *repository.AttackRepository,
	journal *repository.LedgerRepository,
	timezone *time.Location,
) *RankingService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &RankingService{
		players:  players,
		attacks:  attacks,
		journal:  journal,
		timezone: timezone,
	}
}

// GetTopByLevel retrieves the highest ranked players by level, then experience.
func (s *RankingService) GetTopByLevel(ctx context.Context, limit int) ([]*model.Player, error) {
	return s.players.GetTopByLevel(ctx, limit)
}

// GetDailyRaiders retrieves the players who looted the most coins on the day containing now.
func (s *RankingService) GetDailyRaiders(ctx context.Context, now time.Time, limit int) ([]*model.RaidRank, error) {
	from, to := DayBounds(now, s.timezone)
	return s.attacks.TopRaiders(ctx, from, to, limit)
}

// GetTotalLoot returns the coins and gems a player has ever looted.
func (s *RankingService) GetTotalLoot(ctx context.Context, playerID int64) (coins, gems int64, err error) {
	coins, err = s.journal.SumByKind(ctx, playerID, model.ResourceCoin, model.KindAttackLoot)
	if err != nil {
		return 0, 0, err
	}
	gems, err = s.journal.SumByKind(ctx, playerID, model.ResourceGem, model.KindAttackLoot)
	if err != nil {
		return 0, 0, err
	}
	return coins, gems, nil
}

// DayBounds returns the unix second range [from, to) of the calendar day containing now in tz.
func DayBounds(now time.Time, tz *time.Location) (from, to int64) {
	if tz == nil {
		tz = time.UTC
	}
	local := now.In(tz)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
	return start.Unix(), start.AddDate(0, 0, 1).Unix()
}

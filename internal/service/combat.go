package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"warzone-bot/internal/game/combat"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
	"warzone-bot/internal/pkg/metrics"
	"warzone-bot/internal/repository"
)

// Outcome is the applied result of one attack, combo or retaliation.
type Outcome struct {
	AttackID         int64
	AttackerID       int64
	TargetID         int64
	Item             string
	BaseDamage       int64
	Mitigation       int64
	Damage           int64
	CoinLoot         int64
	GemLoot          int64
	ExperienceGained int64
	LeveledUp        bool
	NewLevel         int
	Retaliation      bool
	Combo            bool
	AnsweredAttackID int64 // original record when Retaliation is set
}

// CombatService resolves attacks between two registered players.
type CombatService struct {
	ledger  *Ledger
	attacks *repository.AttackRepository
	window  time.Duration
}

// NewCombatService creates a new CombatService instance.
// A non-positive window falls back to combat.DefaultRetaliationWindow.
func NewCombatService(ledger *Ledger, attacks *repository.AttackRepository, window time.Duration) *CombatService {
	if window <= 0 {
		window = combat.DefaultRetaliationWindow
	}
	return &CombatService{ledger: ledger, attacks: attacks, window: window}
}

// Window returns the retaliation window.
func (s *CombatService) Window() time.Duration {
	return s.window
}

// ResolveAttack launches one missile at target.
func (s *CombatService) ResolveAttack(ctx context.Context, attackerID, targetID int64, item string, now int64) (*Outcome, error) {
	return s.resolve(ctx, attackerID, targetID, []string{item}, now, 0)
}

// ResolveCombo launches two to four distinct missiles at target as one strike.
func (s *CombatService) ResolveCombo(ctx context.Context, attackerID, targetID int64, items []string, now int64) (*Outcome, error) {
	if len(items) < 2 {
		return nil, model.ErrInvalidCombo
	}
	return s.resolve(ctx, attackerID, targetID, items, now, 0)
}

// Retaliate answers a prior attack on actor with one missile, with bonus damage and loot.
func (s *CombatService) Retaliate(ctx context.Context, actorID, attackID int64, item string, now int64) (*Outcome, error) {
	rec, err := s.attacks.GetByID(ctx, attackID)
	if err != nil {
		return nil, err
	}
	if err := combat.CheckRetaliation(rec, actorID, now, s.window); err != nil {
		return nil, err
	}
	return s.resolve(ctx, actorID, rec.AttackerID, []string{item}, now, attackID)
}

// OpenAttacks lists attacks on target that can still be answered as of now.
func (s *CombatService) OpenAttacks(ctx context.Context, targetID, now int64, limit int) ([]*model.AttackRecord, error) {
	since := now - int64(s.window/time.Second)
	return s.attacks.OpenAgainst(ctx, targetID, since, limit)
}

// Deadline returns when a record stops being answerable.
func (s *CombatService) Deadline(rec *model.AttackRecord) int64 {
	return combat.RetaliationDeadline(rec, s.window)
}

// resolve validates and applies one strike. answering is the id of the attack being
// retaliated, or 0 for a first strike. Every check runs against locked rows before the
// first write, so a rejected strike leaves no trace.
func (s *CombatService) resolve(ctx context.Context, attackerID, targetID int64, items []string, now int64, answering int64) (*Outcome, error) {
	if attackerID == targetID {
		return nil, model.ErrSelfTargetForbidden
	}
	salvo, err := combat.NewSalvo(items)
	if err != nil {
		return nil, err
	}
	retaliation := answering != 0

	var out *Outcome
	err = s.ledger.locks.WithPair(attackerID, targetID, func() error {
		return db.InTx(ctx, s.ledger.pool, func(tx pgx.Tx) error {
			b := s.ledger.book(tx)
			attacks := s.attacks.WithTx(tx)

			attacker, target, err := lockParticipants(ctx, b.players, attackerID, targetID)
			if err != nil {
				return err
			}

			if retaliation {
				rec, err := attacks.GetForUpdate(ctx, answering)
				if err != nil {
					return err
				}
				if err := combat.CheckRetaliation(rec, attackerID, now, s.window); err != nil {
					return err
				}
			}

			if attacker.Level < salvo.MinLevel() {
				return model.ErrLevelTooLow
			}
			// A name outside the catalog is a missile the attacker holds none of.
			if len(salvo.Uncatalogued) > 0 {
				return fmt.Errorf("no %q missile held: %w", salvo.Uncatalogued[0], model.ErrInsufficientResources)
			}
			for _, item := range salvo.Items {
				qty, err := b.inventory.Get(ctx, attackerID, item.ID)
				if err != nil {
					return err
				}
				if qty < 1 {
					return model.ErrInsufficientResources
				}
			}
			if attacker.Gems < salvo.GemCost() {
				return model.ErrInsufficientResources
			}

			strike := combat.Compute(attacker, target, salvo, retaliation)
			label := salvo.Label()

			for _, item := range salvo.Items {
				if _, err := b.inventory.Adjust(ctx, attackerID, item.ID, -1); err != nil {
					return err
				}
			}
			if err := b.spend(ctx, attackerID, 0, salvo.GemCost(), model.KindLaunchCost, &label); err != nil {
				return err
			}

			coins, gems, err := b.players.TakeClamped(ctx, targetID, strike.CoinLoot, strike.GemLoot)
			if err != nil {
				return err
			}
			if err := journalLoss(ctx, b, targetID, coins, gems, label); err != nil {
				return err
			}
			if _, err := b.credit(ctx, attackerID, model.ResourceCoin, coins, model.KindAttackLoot, &label); err != nil {
				return err
			}
			if _, err := b.credit(ctx, attackerID, model.ResourceGem, gems, model.KindAttackLoot, &label); err != nil {
				return err
			}

			lvl, err := b.grantExperience(ctx, attacker, strike.Experience, model.KindAttackLoot)
			if err != nil {
				return err
			}

			rec := &model.AttackRecord{
				AttackerID:      attackerID,
				TargetID:        targetID,
				Item:            label,
				Damage:          strike.Damage,
				CoinLoot:        coins,
				GemLoot:         gems,
				IsRetaliation:   retaliation,
				RetaliationOpen: !retaliation,
				CreatedAt:       now,
			}
			if err := attacks.Create(ctx, rec); err != nil {
				return err
			}
			if retaliation {
				if err := attacks.MarkRetaliated(ctx, answering); err != nil {
					return err
				}
			}

			out = &Outcome{
				AttackID:         rec.ID,
				AttackerID:       attackerID,
				TargetID:         targetID,
				Item:             label,
				BaseDamage:       strike.BaseDamage,
				Mitigation:       strike.Mitigation,
				Damage:           strike.Damage,
				CoinLoot:         coins,
				GemLoot:          gems,
				ExperienceGained: strike.Experience,
				LeveledUp:        lvl.LeveledUp(),
				NewLevel:         lvl.Level,
				Retaliation:      retaliation,
				Combo:            salvo.IsCombo(),
				AnsweredAttackID: answering,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.Attacks.WithLabelValues(metrics.AttackType(out.Retaliation, out.Combo)).Inc()
	metrics.Loot.WithLabelValues(string(model.ResourceCoin)).Add(float64(out.CoinLoot))
	metrics.Loot.WithLabelValues(string(model.ResourceGem)).Add(float64(out.GemLoot))

	log.Info().
		Int64("attack_id", out.AttackID).
		Int64("attacker_id", attackerID).
		Int64("target_id", targetID).
		Str("item", out.Item).
		Int64("damage", out.Damage).
		Int64("coin_loot", out.CoinLoot).
		Int64("gem_loot", out.GemLoot).
		Bool("retaliation", retaliation).
		Msg("Attack resolved")
	return out, nil
}

// lockParticipants locks both player rows in ascending id order.
func lockParticipants(ctx context.Context, players *repository.PlayerRepository, attackerID, targetID int64) (attacker, target *model.Player, err error) {
	first, second := attackerID, targetID
	if second < first {
		first, second = second, first
	}

	rows := make(map[int64]*model.Player, 2)
	for _, id := range []int64{first, second} {
		p, err := players.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				return nil, nil, model.ErrUnknownParticipant
			}
			return nil, nil, err
		}
		rows[id] = p
	}
	return rows[attackerID], rows[targetID], nil
}

func journalLoss(ctx context.Context, b *book, targetID, coins, gems int64, label string) error {
	if coins > 0 {
		if _, err := b.journal.Record(ctx, targetID, model.ResourceCoin, -coins, model.KindAttackLoss, &label); err != nil {
			return err
		}
	}
	if gems > 0 {
		if _, err := b.journal.Record(ctx, targetID, model.ResourceGem, -gems, model.KindAttackLoss, &label); err != nil {
			return err
		}
	}
	return nil
}

package action

import (
	"context"

	"warzone-bot/internal/service"
)

// Services is the explicit set of game services the built-in handlers call.
type Services struct {
	Ledger  *service.Ledger
	Miner   *service.MinerService
	Market  *service.MarketService
	Combat  *service.CombatService
	LootBox *service.LootBoxService
}

// RegisterBuiltins installs a handler for every action kind.
func RegisterBuiltins(d *Dispatcher, s Services) error {
	handlers := map[Kind]HandlerFunc{
		KindRegister:        s.register,
		KindCollectIdle:     s.collectIdle,
		KindUpgradeIdleTier: s.upgradeIdleTier,
		KindPurchaseItem:    s.purchaseItem,
		KindUpgradeDefense:  s.upgradeDefense,
		KindUpgradeFighter:  s.upgradeFighter,
		KindAttack:          s.attack,
		KindRetaliate:       s.retaliate,
		KindCombo:           s.combo,
		KindOpenLootBox:     s.openLootBox,
	}
	for kind, h := range handlers {
		if err := d.Register(kind, h); err != nil {
			return err
		}
	}
	return nil
}

// withPlayer attaches the actor's current row to a successful result.
func (s Services) withPlayer(ctx context.Context, id int64, res Result) Result {
	if res.Err != nil {
		return res
	}
	p, err := s.Ledger.Get(ctx, id)
	if err == nil {
		res.Player = p
	}
	return res
}

func (s Services) register(ctx context.Context, a Action) Result {
	p, created, err := s.Ledger.Register(ctx, a.ActorID, a.Handle, a.Name)
	return Result{Player: p, Created: created, Err: err}
}

func (s Services) collectIdle(ctx context.Context, a Action) Result {
	accrued, err := s.Miner.Collect(ctx, a.ActorID, a.Now)
	return s.withPlayer(ctx, a.ActorID, Result{Accrued: accrued, Err: err})
}

func (s Services) upgradeIdleTier(ctx context.Context, a Action) Result {
	tier, err := s.Miner.UpgradeTier(ctx, a.ActorID)
	return s.withPlayer(ctx, a.ActorID, Result{NewTier: tier, Err: err})
}

func (s Services) purchaseItem(ctx context.Context, a Action) Result {
	qty := a.Quantity
	if qty == 0 {
		qty = 1
	}
	held, err := s.Market.PurchaseItem(ctx, a.ActorID, a.Item, qty)
	return s.withPlayer(ctx, a.ActorID, Result{Quantity: held, Err: err})
}

func (s Services) upgradeDefense(ctx context.Context, a Action) Result {
	tier, err := s.Market.UpgradeDefense(ctx, a.ActorID, a.Category)
	return s.withPlayer(ctx, a.ActorID, Result{NewTier: tier, Err: err})
}

func (s Services) upgradeFighter(ctx context.Context, a Action) Result {
	tier, err := s.Market.UpgradeFighter(ctx, a.ActorID)
	return s.withPlayer(ctx, a.ActorID, Result{NewTier: tier, Err: err})
}

func (s Services) attack(ctx context.Context, a Action) Result {
	out, err := s.Combat.ResolveAttack(ctx, a.ActorID, a.TargetID, a.Item, a.Now)
	return s.withPlayer(ctx, a.ActorID, Result{Outcome: out, Err: err})
}

func (s Services) retaliate(ctx context.Context, a Action) Result {
	out, err := s.Combat.Retaliate(ctx, a.ActorID, a.AttackID, a.Item, a.Now)
	return s.withPlayer(ctx, a.ActorID, Result{Outcome: out, Err: err})
}

func (s Services) combo(ctx context.Context, a Action) Result {
	out, err := s.Combat.ResolveCombo(ctx, a.ActorID, a.TargetID, a.Items, a.Now)
	return s.withPlayer(ctx, a.ActorID, Result{Outcome: out, Err: err})
}

func (s Services) openLootBox(ctx context.Context, a Action) Result {
	reward, err := s.LootBox.Open(ctx, a.ActorID, a.Table)
	return s.withPlayer(ctx, a.ActorID, Result{Reward: reward, Err: err})
}

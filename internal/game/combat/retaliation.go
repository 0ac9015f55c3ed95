package combat

import (
	"time"

	"warzone-bot/internal/model"
)

// DefaultRetaliationWindow is how long a target may strike back.
const DefaultRetaliationWindow = time.Hour

// CheckRetaliation validates that actorID may retaliate against rec at now.
func CheckRetaliation(rec *model.AttackRecord, actorID, now int64, window time.Duration) error {
	if rec == nil {
		return model.ErrAttackNotFound
	}
	if rec.TargetID != actorID {
		return model.ErrNotRetaliationTarget
	}
	if rec.Retaliated {
		return model.ErrAlreadyRetaliated
	}
	if !rec.RetaliationOpen {
		return model.ErrRetaliationWindowExpired
	}
	if now-rec.CreatedAt > int64(window/time.Second) {
		return model.ErrRetaliationWindowExpired
	}
	return nil
}

// RetaliationDeadline returns the last unix second at which rec can be retaliated.
func RetaliationDeadline(rec *model.AttackRecord, window time.Duration) int64 {
	return rec.CreatedAt + int64(window/time.Second)
}

package bot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/config"
	"warzone-bot/internal/pkg/metrics"
	"warzone-bot/internal/pkg/ratelimit"
)

// Members remembers who has been seen in a whitelisted group.
// Only those players may run their war economy from a private chat.
type Members struct {
	mu   sync.RWMutex
	seen map[int64]struct{}
}

// NewMembers returns an empty registry.
func NewMembers() *Members {
	return &Members{seen: make(map[int64]struct{})}
}

// Add records a player seen in a whitelisted group.
func (m *Members) Add(userID int64) {
	m.mu.Lock()
	m.seen[userID] = struct{}{}
	m.mu.Unlock()
}

// Has reports whether a player was seen in a whitelisted group.
func (m *Members) Has(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[userID]
	return ok
}

// WhitelistMiddleware drops updates from chats outside the whitelist without a reply.
// Private chats pass when the whitelist is empty or the sender is a known member.
func WhitelistMiddleware(cfg *config.Config, members *Members) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat, sender := c.Chat(), c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type != tele.ChatPrivate {
				if !cfg.IsChatAllowed(chat.ID) {
					log.Debug().Int64("chat_id", chat.ID).Msg("Dropping update from non-whitelisted chat")
					return nil
				}
				members.Add(sender.ID)
				return next(c)
			}

			if len(cfg.Whitelist.Chats) == 0 || members.Has(sender.ID) {
				return next(c)
			}
			log.Debug().Int64("user_id", sender.ID).Msg("Dropping private update from unknown player")
			return nil
		}
	}
}

// RateLimitMiddleware throttles each sender to the limiter's fixed window.
// A disabled limiter lets everything through.
func RateLimitMiddleware(limiter *ratelimit.Limiter) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || !limiter.Enabled() {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			allowed := limiter.Allow(ctx, sender.ID)
			cancel()
			if allowed {
				return next(c)
			}

			log.Debug().Int64("user_id", sender.ID).Msg("Rate limited")
			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: "⏳ Slow down, commander."})
			}
			return nil
		}
	}
}

// AdminMiddleware rejects senders missing from the admin allow-list.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}
			if cfg.IsAdmin(sender.ID) {
				return next(c)
			}

			log.Warn().
				Int64("user_id", sender.ID).
				Str("command", c.Text()).
				Msg("Non-admin attempted admin command")
			return c.Reply("❌ Admins only.")
		}
	}
}

// updateType labels an update for logs and metrics.
func updateType(c tele.Context) string {
	switch {
	case c.Callback() != nil:
		return "callback"
	case c.Message() != nil:
		return "message"
	}
	return "other"
}

// LoggingMiddleware logs every update with its handling time and records the latency histogram.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)

			kind, outcome := updateType(c), "ok"
			if err != nil {
				outcome = "error"
			}
			metrics.Updates.WithLabelValues(kind, outcome).Observe(elapsed.Seconds())

			ev := log.Debug()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			if sender := c.Sender(); sender != nil {
				ev = ev.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				ev = ev.Int64("chat_id", chat.ID)
			}
			if cb := c.Callback(); cb != nil {
				ev = ev.Str("callback", cb.Data)
			} else {
				ev = ev.Str("text", c.Text())
			}
			ev.Str("type", kind).Dur("took", elapsed).Msg("Handled update")

			return err
		}
	}
}

// RecoveryMiddleware turns a handler panic into an error reply.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("text", c.Text()).Msg("Recovered from panic in handler")
					err = answerPanic(c)
				}
			}()
			return next(c)
		}
	}
}

func answerPanic(c tele.Context) error {
	const text = "❌ Internal error, please try again later"
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Reply(text)
}

package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"warzone-bot/internal/config"
	"warzone-bot/internal/pkg/ratelimit"
)

// TestAdminPermissionCheckProperty checks that a user is an admin if and only if
// their id is on the allow-list.
func TestAdminPermissionCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000000000), 1, 10).Draw(t, "adminIDs")
		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}

		userID := rapid.OneOf(
			rapid.SampledFrom(adminIDs),
			rapid.Int64Range(1, 1000000000),
		).Draw(t, "userID")

		expected := false
		for _, id := range adminIDs {
			if id == userID {
				expected = true
				break
			}
		}

		if got := cfg.IsAdmin(userID); got != expected {
			t.Fatalf("IsAdmin(%d) = %v with admins %v", userID, got, adminIDs)
		}
	})
}

// TestWhitelistEnforcementProperty checks that a group chat is allowed if and only if
// it is whitelisted, and that an empty whitelist allows every chat.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chats := rapid.SliceOfN(rapid.Int64Range(-1000000000, -1), 0, 10).Draw(t, "chats")
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chats}}

		chatID := rapid.Int64Range(-1000000000, -1).Draw(t, "chatID")
		if len(chats) > 0 && rapid.Bool().Draw(t, "pickListed") {
			chatID = rapid.SampledFrom(chats).Draw(t, "listed")
		}

		expected := len(chats) == 0
		for _, id := range chats {
			if id == chatID {
				expected = true
			}
		}

		if got := cfg.IsChatAllowed(chatID); got != expected {
			t.Fatalf("IsChatAllowed(%d) = %v with whitelist %v", chatID, got, chats)
		}
	})
}

// TestMembersProperty checks that exactly the added players are members.
func TestMembersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		added := rapid.SliceOfDistinct(rapid.Int64Range(1, 1000), func(id int64) int64 { return id }).Draw(t, "added")
		probe := rapid.Int64Range(1, 1000).Draw(t, "probe")

		m := NewMembers()
		want := false
		for _, id := range added {
			m.Add(id)
			if id == probe {
				want = true
			}
		}
		if got := m.Has(probe); got != want {
			t.Fatalf("Has(%d) = %v after adding %v", probe, got, added)
		}
	})
}

func newOfflineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func messageFrom(b *tele.Bot, userID int64, chat *tele.Chat) tele.Context {
	return b.NewContext(tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   chat,
		Text:   "/wallet",
	}})
}

// passes reports whether the middleware let the update through to next.
func passes(mw tele.MiddlewareFunc, c tele.Context) bool {
	called := false
	_ = mw(func(tele.Context) error {
		called = true
		return nil
	})(c)
	return called
}

func TestWhitelistMiddleware(t *testing.T) {
	b := newOfflineBot(t)
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	mw := WhitelistMiddleware(cfg, NewMembers())

	const member, stranger = 900001, 900002

	assert.False(t, passes(mw, messageFrom(b, member, &tele.Chat{ID: -200, Type: tele.ChatGroup})))
	assert.False(t, passes(mw, messageFrom(b, stranger, &tele.Chat{ID: stranger, Type: tele.ChatPrivate})))

	// Seen in a whitelisted group, the member may then use private chat.
	assert.True(t, passes(mw, messageFrom(b, member, &tele.Chat{ID: -100, Type: tele.ChatSuperGroup})))
	assert.True(t, passes(mw, messageFrom(b, member, &tele.Chat{ID: member, Type: tele.ChatPrivate})))
}

func TestRateLimitMiddleware_DisabledPassesThrough(t *testing.T) {
	b := newOfflineBot(t)
	mw := RateLimitMiddleware(ratelimit.New(nil, 1, time.Minute))

	for i := 0; i < 5; i++ {
		assert.True(t, passes(mw, messageFrom(b, 7, &tele.Chat{ID: -1, Type: tele.ChatGroup})))
	}

	assert.True(t, passes(RateLimitMiddleware(nil), messageFrom(b, 7, &tele.Chat{ID: -1, Type: tele.ChatGroup})))
}

func TestRouteCallback(t *testing.T) {
	wb, err := New(&Dependencies{Config: &config.Config{}, Offline: true})
	require.NoError(t, err)

	cases := map[string]string{
		"\fmkt_buy:meteor":        "market",
		"mkt_refresh":             "market",
		"\fminer_collect":         "miner",
		"\fatk_pick:tok:meteor":   "combat",
		"\fatk_cancel:tok":        "combat",
		"\fcombo_add:tok:torrent": "combat",
		"\fcombo_fire:tok":        "combat",
		"\fret:12:hailstorm":      "combat",
		"\fbox:elite":             "lootbox",
	}
	for data, want := range cases {
		r, ok := wb.routeCallback(data)
		if assert.True(t, ok, data) {
			assert.Equal(t, want, r.name, data)
		}
	}

	_, ok := wb.routeCallback("\fsicbo_bet:big")
	assert.False(t, ok)
}

func TestWhitelistMiddleware_EmptyWhitelistAllowsPrivate(t *testing.T) {
	b := newOfflineBot(t)
	mw := WhitelistMiddleware(&config.Config{}, NewMembers())

	assert.True(t, passes(mw, messageFrom(b, 5, &tele.Chat{ID: 5, Type: tele.ChatPrivate})))
	assert.True(t, passes(mw, messageFrom(b, 5, &tele.Chat{ID: -9, Type: tele.ChatGroup})))
}

func TestRecoveryMiddleware_SwallowsPanic(t *testing.T) {
	// The error reply goes to a closed port and fails fast.
	b, err := tele.NewBot(tele.Settings{Offline: true, URL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	c := b.NewContext(tele.Update{Callback: &tele.Callback{
		Sender: &tele.User{ID: 3},
		Data:   "\fminer_collect",
	}})

	h := RecoveryMiddleware()(func(tele.Context) error { panic("boom") })
	assert.NotPanics(t, func() { _ = h(c) })
}

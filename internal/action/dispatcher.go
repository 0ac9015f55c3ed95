package action

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"warzone-bot/internal/game"
	"warzone-bot/internal/pkg/metrics"
)

// HandlerFunc resolves one action.
type HandlerFunc func(ctx context.Context, a Action) Result

// Dispatcher routes actions to the handler registered for their Kind.
type Dispatcher struct {
	handlers map[Kind]HandlerFunc
	mu       sync.RWMutex
	clock    game.Clock
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(clock game.Clock) *Dispatcher {
	if clock == nil {
		clock = game.RealClock{}
	}
	return &Dispatcher{
		handlers: make(map[Kind]HandlerFunc),
		clock:    clock,
	}
}

// Register adds a handler. A handler already registered for kind is replaced.
func (d *Dispatcher) Register(kind Kind, h HandlerFunc) error {
	if kind == "" {
		return fmt.Errorf("action kind cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("cannot register nil handler for %s", kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
	return nil
}

// Get retrieves the handler for kind.
func (d *Dispatcher) Get(kind Kind) (HandlerFunc, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[kind]
	return h, ok
}

// Kinds returns the registered kinds, sorted.
func (d *Dispatcher) Kinds() []Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kinds := make([]Kind, 0, len(d.handlers))
	for k := range d.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Count returns the number of registered handlers.
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Dispatch resolves a. A zero Now is filled from the dispatcher clock.
func (d *Dispatcher) Dispatch(ctx context.Context, a Action) Result {
	if a.Now == 0 {
		a.Now = game.NowUnix(d.clock)
	}

	h, ok := d.Get(a.Kind)
	if !ok {
		res := Fail(a.Kind, ErrUnknownAction)
		metrics.Actions.WithLabelValues(string(a.Kind), string(res.Code)).Inc()
		return res
	}

	res := h(ctx, a)
	res.Kind = a.Kind
	if res.Err != nil {
		res.OK = false
		if res.Code == CodeNone {
			res.Code = CodeOf(res.Err)
		}
	} else {
		res.OK = true
	}

	label := "ok"
	if !res.OK {
		label = string(res.Code)
	}
	metrics.Actions.WithLabelValues(string(a.Kind), label).Inc()

	if res.Code == CodeInternal {
		log.Error().
			Err(res.Err).
			Int64("user_id", a.ActorID).
			Str("action", string(a.Kind)).
			Msg("Action failed")
	}
	return res
}

package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/handlers"
	"github.com/luckybingo/bingo-bot/internal/state"
)

// Dispatcher routes incoming updates to flow-specific handlers.
type Dispatcher struct {
	fsm          state.Machine
	flowHandlers map[state.Flow]handlers.Handler
	log          *slog.Logger
	mu           sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(fsm state.Machine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:          fsm,
		flowHandlers: make(map[state.Flow]handlers.Handler),
		log:          log,
	}
}

// RegisterFlowHandler registers a handler for the provided conversation flow.
func (d *Dispatcher) RegisterFlowHandler(f state.Flow, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flowHandlers[f] = h
}

// Dispatch routes the update based on the user's active flow.
func (d *Dispatcher) Dispatch(c telebot.Context) error {
	if c == nil || c.Sender() == nil {
		d.log.Warn("cannot dispatch without sender information")
		return nil
	}

	flow, err := d.currentFlow(context.Background(), c.Sender().ID)
	if err != nil {
		return err
	}

	handler := d.getHandler(flow)
	if handler == nil {
		d.log.Info("no handler registered for flow",
			slog.String("flow", string(flow)),
			slog.Int64("user_id", c.Sender().ID),
		)
		return nil
	}

	return handler(c)
}

func (d *Dispatcher) currentFlow(ctx context.Context, userID int64) (state.Flow, error) {
	session, err := d.fsm.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, state.ErrSessionNotFound) {
			return state.FlowIdle, nil
		}
		return state.FlowIdle, err
	}

	if session == nil || session.Flow == "" {
		return state.FlowIdle, nil
	}

	return session.Flow, nil
}

func (d *Dispatcher) getHandler(f state.Flow) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.flowHandlers[f]
}

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	"github.com/luckybingo/bingo-bot/internal/domain"
	"github.com/luckybingo/bingo-bot/internal/jobs"
	"github.com/luckybingo/bingo-bot/internal/ledger"
	"github.com/luckybingo/bingo-bot/internal/state"
)

// ClaimGate bounds how often a user may submit payment references. Each
// submission probes the transaction registry, so the gate is what keeps
// reference guessing impractical.
type ClaimGate interface {
	AllowClaim(ctx context.Context, userID int64) bool
}

// NewDepositStartHandler opens the deposit flow and asks for an amount.
// Reachable from any flow: starting over replaces the previous conversation.
func NewDepositStartHandler(fsm state.Machine, kb *keyboard.Builder, minAmountCents int64, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("deposit start invoked without sender")
			return nil
		}

		if cb := c.Callback(); cb != nil {
			_ = c.Respond(&telebot.CallbackResponse{})
		}

		session := &state.Session{
			Flow:    state.FlowDepositAmount,
			Deposit: &state.DepositContext{},
		}
		if err := fsm.SetSession(context.Background(), sender.ID, session); err != nil {
			return err
		}

		prompt := fmt.Sprintf("💰 How much would you like to deposit?\n\nEnter an amount in ETB (minimum %s).",
			domain.FormatETB(minAmountCents))

		return c.Send(prompt, kb.CancelButton())
	}
}

// NewDepositAmountHandler consumes the amount message and asks for a method.
func NewDepositAmountHandler(fsm state.Machine, kb *keyboard.Builder, minAmountCents int64, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		cents, ok := domain.AmountToCents(c.Text())
		if !ok {
			return c.Send("That doesn't look like an amount. Enter a number like 100 or 250.50.", kb.CancelButton())
		}
		if cents < minAmountCents {
			return c.Send(fmt.Sprintf("The minimum deposit is %s ETB.", domain.FormatETB(minAmountCents)), kb.CancelButton())
		}

		session := &state.Session{
			Flow:    state.FlowDepositMethod,
			Deposit: &state.DepositContext{Amount: cents},
		}
		if err := fsm.SetSession(context.Background(), sender.ID, session); err != nil {
			return err
		}

		return c.Send("Which payment method did you use?", kb.MethodButtons())
	}
}

// NewDepositMethodHandler consumes the method callback and asks for the
// payment reference.
func NewDepositMethodHandler(fsm state.Machine, kb *keyboard.Builder, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		cb := c.Callback()
		if sender == nil || cb == nil {
			return nil
		}

		_, method, err := keyboard.DecodeCallback(strings.TrimPrefix(cb.Data, "\f"))
		if err != nil {
			return err
		}

		method = domain.NormalizeMethod(method)
		if !domain.IsSupportedMethod(method) {
			_ = c.Respond(&telebot.CallbackResponse{Text: "Unknown payment method"})
			return nil
		}

		ctx := context.Background()

		current, err := fsm.GetSession(ctx, sender.ID)
		if err != nil || current == nil || current.Flow != state.FlowDepositMethod || current.Deposit == nil {
			_ = c.Respond(&telebot.CallbackResponse{Text: "This deposit has expired, start again with /deposit"})
			return nil
		}

		session := &state.Session{
			Flow: state.FlowDepositReference,
			Deposit: &state.DepositContext{
				Amount: current.Deposit.Amount,
				Method: method,
			},
		}
		if err := fsm.SetSession(ctx, sender.ID, session); err != nil {
			return err
		}

		_ = c.Respond(&telebot.CallbackResponse{})

		prompt := fmt.Sprintf(
			"🧾 Send the transaction reference from your %s payment.\n\nYou can find it in the confirmation SMS or app receipt.",
			method,
		)

		return c.Send(prompt, kb.CancelButton())
	}
}

// NewDepositReferenceHandler consumes the reference and runs reconciliation.
// A matched claim credits immediately; everything else lands in the
// moderation queue, alerts the support channel, and offers a receipt upload.
func NewDepositReferenceHandler(
	fsm state.Machine,
	engine *ledger.Service,
	gate ClaimGate,
	queue jobs.Manager,
	kb *keyboard.Builder,
	log *slog.Logger,
) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		ctx := context.Background()

		current, err := fsm.GetSession(ctx, sender.ID)
		if err != nil || current == nil || current.Deposit == nil {
			return c.Send("This deposit has expired. Start again with /deposit.")
		}

		if gate != nil && !gate.AllowClaim(ctx, sender.ID) {
			return c.Send("⏳ Too many attempts. Please wait a few minutes before submitting another reference.")
		}

		reference := strings.TrimSpace(c.Text())
		amount := current.Deposit.Amount
		method := current.Deposit.Method

		outcome, err := engine.Reconcile(ctx, sender.ID, method, amount, reference)
		if err != nil {
			return err
		}

		if outcome.Approved {
			if err := fsm.ClearSession(ctx, sender.ID); err != nil {
				log.Warn("failed to clear session after approval", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			}
			return c.Send(outcome.Message)
		}

		notifyPending(ctx, queue, sender, outcome, log)

		session := &state.Session{
			Flow: state.FlowReceiptUpload,
			Receipt: &state.ReceiptContext{
				Method: method,
				Amount: amount,
			},
		}
		if err := fsm.SetSession(ctx, sender.ID, session); err != nil {
			log.Warn("failed to enter receipt flow", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return c.Send(outcome.Message)
		}

		return c.Send(
			outcome.Message+"\n\nA photo of your payment receipt speeds up the review.",
			kb.ReceiptOffer(),
		)
	}
}

// notifyPending alerts the support channel about a claim waiting for review.
// Best effort: the claim is already stored, a lost alert only delays it.
func notifyPending(ctx context.Context, queue jobs.Manager, sender *telebot.User, outcome *ledger.Outcome, log *slog.Logger) {
	if queue == nil || outcome == nil || outcome.Deposit == nil {
		return
	}

	dep := outcome.Deposit
	text := fmt.Sprintf(
		"⏳ Deposit #%d needs review\nUser: %s (%d)\nMethod: %s\nAmount: %s ETB\nReference: %s",
		dep.ID, sender.Username, sender.ID, dep.Method, domain.FormatETB(dep.Amount), dep.Reference,
	)

	task, err := jobs.NewNotifySupportTask(text)
	if err == nil {
		_, err = queue.Enqueue(ctx, task)
	}
	if err != nil && log != nil {
		log.Error("failed to enqueue support notification",
			slog.Int64("deposit_id", dep.ID),
			slog.Any("error", err),
		)
	}
}

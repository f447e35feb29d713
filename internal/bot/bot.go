// Package bot wires the Telegram transport: command routing, conversation
// flow dispatch, and the middleware chain in front of every handler.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/handlers"
	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/internal/idempotency"
	"github.com/luckybingo/bingo-bot/internal/jobs"
	"github.com/luckybingo/bingo-bot/internal/leaderboard"
	"github.com/luckybingo/bingo-bot/internal/ledger"
	"github.com/luckybingo/bingo-bot/internal/middleware"
	"github.com/luckybingo/bingo-bot/internal/state"
	"github.com/luckybingo/bingo-bot/internal/usage"
	"github.com/luckybingo/bingo-bot/internal/user"
	"github.com/luckybingo/bingo-bot/internal/usercache"
	"github.com/luckybingo/bingo-bot/pkg/config"
)

// Deps bundles the application services the bot handlers depend on.
type Deps struct {
	FSM         state.Machine
	Users       *user.Service
	Ledger      *ledger.Service
	Leaderboard *leaderboard.Service
	Usage       *usage.Service
	Cache       *usercache.Cache
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
	Queue       jobs.Manager
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	deps       Deps
	router     *Router
	dispatcher *Dispatcher
	keyboard   *keyboard.Builder
	errHandler *apperrors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, deps Deps) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Server.Port,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	dispatcher := NewDispatcher(deps.FSM, log)

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		deps:       deps,
		router:     NewRouter(dispatcher, log),
		dispatcher: dispatcher,
		keyboard:   keyboard.NewBuilder(log),
		errHandler: apperrors.NewHandler(log, cfg.Sentry.Enabled),
	}

	b.setupMiddlewares()
	b.setupCommands()
	b.setupCallbacks()
	b.setupFlows()
	b.registerTelebotHandlers()

	return b, nil
}

// Start publishes the command list and runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	if err := b.telebot.SetCommands(commandList()); err != nil && b.log != nil {
		b.log.Warn("failed to publish bot commands", slog.Any("error", err))
	}

	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	if b.log != nil {
		b.log.Info("stopping telegram bot...")
	}

	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such
// as health checks and the support notifier.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// SetShortDescription updates the bot's public bio. Telebot has no typed
// binding for this Bot API method, so it goes through Raw.
func (b *Bot) SetShortDescription(ctx context.Context, text string) error {
	if b.telebot == nil {
		return fmt.Errorf("telebot is not initialized")
	}

	_, err := b.telebot.Raw("setMyShortDescription", map[string]string{
		"short_description": text,
	})

	return err
}

func (b *Bot) setupMiddlewares() {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(middleware.Idempotency(b.deps.Idempotency, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(AuthMiddleware(b.deps.Users, b.log))
	b.router.Use(RegistrationGateMiddleware(b.deps.Users, b.deps.Cache, b.log))
	b.router.Use(UsageLoggingMiddleware(b.deps.Usage))
	b.router.Use(middleware.Metrics)
}

func (b *Bot) setupCommands() {
	minAmount := b.cfg.Deposit.MinAmountCents()

	startHandler := handlers.NewStartHandler(b.deps.Users, b.deps.FSM, b.keyboard, b.log)
	depositHandler := handlers.NewDepositStartHandler(b.deps.FSM, b.keyboard, minAmount, b.log)
	balanceHandler := handlers.NewBalanceHandler(b.deps.Users, b.log)
	playHandler := handlers.NewPlayHandler(b.keyboard, b.cfg.Bot.PlayURL, b.log)
	leaderboardHandler := handlers.NewLeaderboardHandler(b.deps.Leaderboard, b.keyboard, b.cfg.Server.LeaderboardMax, b.log)

	b.router.RegisterCommand(CommandStart, startHandler)
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(b.deps.Users, b.deps.FSM, b.keyboard, b.log))
	b.router.RegisterCommand(CommandDeposit, depositHandler)
	b.router.RegisterCommand(CommandBalance, balanceHandler)
	b.router.RegisterCommand(CommandPlay, playHandler)
	b.router.RegisterCommand(CommandRegister, handlers.NewRegisterHandler(b.log))
	b.router.RegisterCommand(CommandInvite, handlers.NewInviteHandler(b.log))
	b.router.RegisterCommand(CommandLeaderboard, leaderboardHandler)
	b.router.RegisterCommand(CommandUsername, handlers.NewUsernameStartHandler(b.deps.FSM, b.keyboard, b.log))
	b.router.RegisterCommand(CommandInstructions, b.instructionsHandler())
	b.router.RegisterCommand(CommandSupport, handlers.NewSupportHandler(b.cfg.Bot.SupportHandle, b.cfg.Bot.SupportPhone))

	b.router.SetDefault(func(c telebot.Context) error {
		registered := true
		if u, err := b.deps.Users.Get(context.Background(), c.Sender().ID); err == nil {
			registered = u.Registered()
		}
		return c.Send("Pick an option:", b.keyboard.MainMenu(registered))
	})
}

func (b *Bot) setupCallbacks() {
	minAmount := b.cfg.Deposit.MinAmountCents()
	cancelHandler := handlers.NewCancelHandler(b.deps.Users, b.deps.FSM, b.keyboard, b.log)
	leaderboardHandler := handlers.NewLeaderboardHandler(b.deps.Leaderboard, b.keyboard, b.cfg.Server.LeaderboardMax, b.log)

	b.router.RegisterCallback(CallbackMenuPlay, handlers.CallbackHandler(handlers.NewPlayHandler(b.keyboard, b.cfg.Bot.PlayURL, b.log)))
	b.router.RegisterCallback(CallbackMenuDeposit, handlers.CallbackHandler(handlers.NewDepositStartHandler(b.deps.FSM, b.keyboard, minAmount, b.log)))
	b.router.RegisterCallback(CallbackMenuBalance, handlers.CallbackHandler(handlers.NewBalanceHandler(b.deps.Users, b.log)))
	b.router.RegisterCallback(CallbackMenuLeaderboard, handlers.CallbackHandler(leaderboardHandler))
	b.router.RegisterCallback(CallbackLeaderboardPage, handlers.CallbackHandler(leaderboardHandler))
	b.router.RegisterCallback(CallbackMenuInvite, handlers.CallbackHandler(handlers.NewInviteHandler(b.log)))
	b.router.RegisterCallback(CallbackMenuInstructions, handlers.CallbackHandler(b.instructionsHandler()))
	b.router.RegisterCallback(CallbackMenuSupport, handlers.CallbackHandler(handlers.NewSupportHandler(b.cfg.Bot.SupportHandle, b.cfg.Bot.SupportPhone)))
	b.router.RegisterCallback(CallbackMenuPatterns, handlers.CallbackHandler(handlers.NewPatternsHandler()))
	b.router.RegisterCallback(CallbackMenuRegister, handlers.CallbackHandler(handlers.NewRegisterHandler(b.log)))
	b.router.RegisterCallback(CallbackMethod, handlers.NewDepositMethodHandler(b.deps.FSM, b.keyboard, b.log))
	b.router.RegisterCallback(CallbackReceiptUpload, handlers.NewReceiptPromptHandler(b.log))
	b.router.RegisterCallback(CallbackCancel, handlers.CallbackHandler(cancelHandler))
}

func (b *Bot) setupFlows() {
	minAmount := b.cfg.Deposit.MinAmountCents()

	b.dispatcher.RegisterFlowHandler(state.FlowDepositAmount,
		handlers.NewDepositAmountHandler(b.deps.FSM, b.keyboard, minAmount, b.log))
	b.dispatcher.RegisterFlowHandler(state.FlowDepositReference,
		handlers.NewDepositReferenceHandler(b.deps.FSM, b.deps.Ledger, b.deps.RateLimit, b.deps.Queue, b.keyboard, b.log))
	b.dispatcher.RegisterFlowHandler(state.FlowUsernameChange,
		handlers.NewUsernameInputHandler(b.deps.Users, b.deps.Cache, b.deps.FSM, b.log))

	// Text arriving while a button press is expected.
	b.dispatcher.RegisterFlowHandler(state.FlowDepositMethod, func(c telebot.Context) error {
		return c.Send("Please pick a payment method with the buttons above, or /cancel.")
	})
	b.dispatcher.RegisterFlowHandler(state.FlowReceiptUpload, func(c telebot.Context) error {
		return c.Send("Send the receipt as a photo, or /cancel to skip.")
	})
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	if b.deps.RateLimit != nil {
		b.telebot.Use(b.deps.RateLimit.Handle)
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
	b.telebot.Handle(telebot.OnContact,
		b.router.Wrap(handlers.NewContactHandler(b.deps.Users, b.deps.Cache, b.keyboard, b.log)))
	b.telebot.Handle(telebot.OnPhoto,
		b.router.Wrap(handlers.NewReceiptPhotoHandler(b.deps.FSM, b.deps.Queue, b.log)))
}

func (b *Bot) instructionsHandler() handlers.Handler {
	return handlers.NewInstructionsHandler(fmt.Sprintf("%d", b.cfg.Deposit.MinAmountETB))
}

func commandList() []telebot.Command {
	return []telebot.Command{
		{Text: "start", Description: "Main menu"},
		{Text: "play", Description: "Join a bingo room"},
		{Text: "deposit", Description: "Top up your balance"},
		{Text: "balance", Description: "Show balance and coins"},
		{Text: "register", Description: "Share your phone number"},
		{Text: "invite", Description: "Get your referral link"},
		{Text: "leaderboard", Description: "Monthly standings"},
		{Text: "username", Description: "Change your display name"},
		{Text: "instructions", Description: "How it works"},
		{Text: "support", Description: "Contact support"},
		{Text: "cancel", Description: "Abandon the current action"},
	}
}

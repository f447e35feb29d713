package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/handlers"
	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	apperrors "github.com/luckybingo/bingo-bot/internal/errors"
	"github.com/luckybingo/bingo-bot/internal/usage"
	"github.com/luckybingo/bingo-bot/internal/user"
	"github.com/luckybingo/bingo-bot/internal/usercache"
)

const userCacheTTL = 10 * time.Minute

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := "⚠️ Something went wrong. Please try again later."
					if errHandler != nil {
						appErr := apperrors.NewDatabaseError(fmt.Errorf("panic recovered: %v", r))
						if msg, _ := errHandler.Handle(context.Background(), appErr); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := "Something went wrong. Please try again later."
			if errHandler != nil {
				if msg, _ := errHandler.Handle(context.Background(), err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			userID := int64(0)
			if c != nil && c.Sender() != nil {
				userID = c.Sender().ID
			}

			action := updateAction(c)

			err := next(c)
			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// AuthMiddleware ensures every update is backed by an account, creating one
// on first contact. The referral payload of a /start deep link rides along
// so the inviter is recorded at creation time.
func AuthMiddleware(users *user.Service, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if users == nil || c == nil || c.Sender() == nil {
				return next(c)
			}

			if _, err := users.GetOrCreate(context.Background(), c.Sender(), handlers.StartReferrer(c)); err != nil {
				log.Error("failed to resolve account", slog.Int64("user_id", c.Sender().ID), slog.Any("error", err))
				return err
			}

			return next(c)
		}
	}
}

// openActions are the surfaces reachable without a completed registration:
// entering the bot, the registration itself, invites, and cancelling.
// Everything else prompts for a phone number.
var openActions = []string{
	CommandStart,
	CommandRegister,
	CommandInvite,
	CommandCancel,
	CallbackMenuRegister,
	CallbackMenuInvite,
	CallbackCancel,
}

// RegistrationGateMiddleware blocks everything but registration and invites
// until the user has shared a phone number. Profiles are cached in Redis so
// the check does not hit the database on every update.
func RegistrationGateMiddleware(users *user.Service, cache *usercache.Cache, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if c == nil || c.Sender() == nil || isOpenAction(c, updateAction(c)) {
				return next(c)
			}

			ctx := context.Background()
			userID := c.Sender().ID

			u, err := cache.Get(ctx, userID)
			if err != nil {
				log.Warn("user cache read failed", slog.Int64("user_id", userID), slog.Any("error", err))
			}

			if u == nil {
				u, err = users.Get(ctx, userID)
				if err != nil {
					return err
				}

				if cacheErr := cache.Set(ctx, userID, u, userCacheTTL); cacheErr != nil {
					log.Warn("user cache write failed", slog.Int64("user_id", userID), slog.Any("error", cacheErr))
				}
			}

			if !u.Registered() {
				return c.Send(
					"📱 You need to register first. Share your phone number to continue.",
					keyboard.ContactRequest(),
				)
			}

			return next(c)
		}
	}
}

// UsageLoggingMiddleware records monthly activity without blocking the
// request flow.
func UsageLoggingMiddleware(usageSvc *usage.Service) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if usageSvc != nil && c != nil && c.Sender() != nil {
				sender := c.Sender()

				go func(id int64, username string) {
					usageSvc.Touch(context.Background(), id, username)
				}(sender.ID, sender.Username)
			}

			return next(c)
		}
	}
}

// isOpenAction reports whether the update may proceed unregistered. Contact
// shares carry no text or callback data; they must pass so registration can
// complete.
func isOpenAction(c telebot.Context, action string) bool {
	if msg := c.Message(); msg != nil && msg.Contact != nil {
		return true
	}

	return isOpenActionName(action)
}

func isOpenActionName(action string) bool {
	for _, open := range openActions {
		if action == open || strings.HasPrefix(action, open+keyboard.CallbackDataSeparator) {
			return true
		}
	}

	return false
}

// updateAction names the update for logging and gating: callback data for
// button presses, the bare command for messages.
func updateAction(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		return strings.TrimPrefix(cb.Data, "\f")
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		return commandOnly(text)
	}

	return text
}

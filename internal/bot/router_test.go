package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
)

// callbackContext carries only the callback payload; the embedded interface
// panics on anything the router should not touch.
type callbackContext struct {
	telebot.Context
	callback *telebot.Callback
}

func (c *callbackContext) Callback() *telebot.Callback { return c.callback }

func TestCommandOnly(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "/start", want: "/start"},
		{in: "/start 12345", want: "/start"},
		{in: "/deposit@lucky_bingo_bot", want: "/deposit"},
		{in: "/leaderboard@lucky_bingo_bot 2", want: "/leaderboard"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, commandOnly(tc.in))
	}
}

// Every button the Builder emits must route to the handler registered under
// its callback prefix.
func TestRouteBuilderCallbacks(t *testing.T) {
	router := NewRouter(nil, nil)

	fired := make(map[string]int)
	for _, prefix := range []string{
		CallbackMenuRegister, CallbackMenuPlay, CallbackMenuDeposit,
		CallbackMenuBalance, CallbackMenuLeaderboard, CallbackMenuInvite,
		CallbackMenuInstructions, CallbackMenuPatterns, CallbackMenuSupport,
		CallbackMethod, CallbackReceiptUpload, CallbackCancel,
	} {
		prefix := prefix
		router.RegisterCallback(prefix, func(c telebot.Context) error {
			fired[prefix]++
			return nil
		})
	}

	route := func(data string) {
		err := router.Route(&callbackContext{callback: &telebot.Callback{Data: data}})
		require.NoError(t, err, "data %q", data)
	}

	b := keyboard.NewBuilder(nil)

	markups := []*telebot.ReplyMarkup{
		b.MainMenu(false),
		b.MethodButtons(),
		b.ReceiptOffer(),
		b.CancelButton(),
	}
	for _, markup := range markups {
		for _, row := range markup.InlineKeyboard {
			for _, btn := range row {
				route(btn.Data)
			}
		}
	}

	// Every registered prefix was reached at least once through a real button.
	for _, prefix := range []string{
		CallbackMenuRegister, CallbackMenuPlay, CallbackCancel,
		CallbackMethod, CallbackReceiptUpload,
	} {
		assert.Positive(t, fired[prefix], "prefix %s never routed", prefix)
	}

	// Plain menu data must hit its own handler, not a lookalike prefix.
	assert.Equal(t, 1, fired[CallbackMenuRegister])
	assert.Equal(t, 1, fired[CallbackMenuDeposit])
}

func TestRouteCallbackHandler(t *testing.T) {
	router := NewRouter(nil, nil)

	var got string
	router.RegisterCallback(CallbackMethod, func(c telebot.Context) error {
		_, data, err := keyboard.DecodeCallback(c.Callback().Data)
		require.NoError(t, err)
		got = data
		return nil
	})
	router.RegisterCallback(CallbackCancel, func(c telebot.Context) error {
		got = "cancelled"
		return nil
	})

	// Telebot prefixes raw callback data with \f; the router strips it.
	err := router.Route(&callbackContext{callback: &telebot.Callback{Data: "\fmethod:telebirr"}})
	require.NoError(t, err)
	assert.Equal(t, "telebirr", got)

	err = router.Route(&callbackContext{callback: &telebot.Callback{Data: "cancel"}})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got)
}

func TestIsOpenActionName(t *testing.T) {
	assert.True(t, isOpenActionName(CommandStart))
	assert.True(t, isOpenActionName(CommandRegister))
	assert.True(t, isOpenActionName(CommandInvite))
	assert.True(t, isOpenActionName(CallbackMenuRegister))
	assert.True(t, isOpenActionName(CallbackCancel))

	assert.False(t, isOpenActionName(CommandDeposit))
	assert.False(t, isOpenActionName(CommandPlay))
	assert.False(t, isOpenActionName(CommandBalance))
	assert.False(t, isOpenActionName("method:telebirr"))
	// Prefix matches require the separator, not just a shared prefix.
	assert.False(t, isOpenActionName("/startup"))
}

package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckybingo/bingo-bot/internal/bot/keyboard"
	"github.com/luckybingo/bingo-bot/internal/domain"
)

func TestBuilderMainMenu(t *testing.T) {
	b := keyboard.NewBuilder(nil)

	registered := b.MainMenu(true)
	unregistered := b.MainMenu(false)

	require.NotEmpty(t, registered.InlineKeyboard)
	require.NotEmpty(t, unregistered.InlineKeyboard)

	// The register row is only offered to unregistered users.
	assert.Len(t, unregistered.InlineKeyboard, len(registered.InlineKeyboard)+1)
	assert.Equal(t, "menu_register", unregistered.InlineKeyboard[0][0].Data)
	assert.NotEqual(t, "menu_register", registered.InlineKeyboard[0][0].Data)
}

func TestBuilderMethodButtons(t *testing.T) {
	b := keyboard.NewBuilder(nil)

	markup := b.MethodButtons()
	methods := domain.SupportedMethods()

	// One row per method plus the cancel row.
	require.Len(t, markup.InlineKeyboard, len(methods)+1)

	for i, method := range methods {
		assert.Equal(t, "method:"+method, markup.InlineKeyboard[i][0].Data)
	}

	last := markup.InlineKeyboard[len(markup.InlineKeyboard)-1]
	assert.Equal(t, "cancel", last[0].Data)
}

func TestBuilderStakeButtons(t *testing.T) {
	b := keyboard.NewBuilder(nil)

	markup := b.StakeButtons("https://play.example.com")
	require.Len(t, markup.InlineKeyboard, 1)

	for _, btn := range markup.InlineKeyboard[0] {
		assert.Contains(t, btn.URL, "https://play.example.com?stake=")
	}
}

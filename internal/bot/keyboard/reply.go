package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// ContactRequest builds a one-time reply keyboard asking the user to share
// their phone number. Telegram only exposes the contact button on reply
// keyboards, so registration is the single place a reply markup is used.
func ContactRequest() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}

	shareBtn := markup.Contact("📱 Share my phone number")
	markup.Reply(markup.Row(shareBtn))

	return markup
}

// RemoveReply clears any reply keyboard left on the user's screen.
func RemoveReply() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}

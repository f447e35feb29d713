package bot

// Command constants for Telegram bot commands.
const (
	CommandStart        = "/start"
	CommandPlay         = "/play"
	CommandDeposit      = "/deposit"
	CommandBalance      = "/balance"
	CommandRegister     = "/register"
	CommandInvite       = "/invite"
	CommandLeaderboard  = "/leaderboard"
	CommandUsername     = "/username"
	CommandInstructions = "/instructions"
	CommandSupport      = "/support"
	CommandCancel       = "/cancel"
)

// Callback prefix constants for inline button interactions.
const (
	CallbackMenuPlay         = "menu_play"
	CallbackMenuDeposit      = "menu_deposit"
	CallbackMenuBalance      = "menu_balance"
	CallbackMenuLeaderboard  = "menu_leaderboard"
	CallbackMenuInvite       = "menu_invite"
	CallbackMenuInstructions = "menu_instructions"
	CallbackMenuSupport      = "menu_support"
	CallbackMenuPatterns     = "menu_patterns"
	CallbackMenuRegister     = "menu_register"
	CallbackMethod           = "method"
	CallbackLeaderboardPage  = "lb_page"
	CallbackReceiptUpload    = "receipt_upload"
	CallbackCancel           = "cancel"
)

package model

// Client is the subset of the CRM client record the ledger needs for
// reference resolution and statement display.
type Client struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Telegram string `json:"telegram"`
}

// Worker is the subset of the CRM worker record the ledger needs.
type Worker struct {
	ID               int64  `json:"id"`
	FullName         string `json:"full_name"`
	Position         string `json:"position"`
	Phone            string `json:"phone"`
	TelegramUsername string `json:"telegram_username"`
}

package models

import "time"

// Settings is the singleton panel configuration row. The bot token and
// client ID, when set, override the values from the environment.
type Settings struct {
	WebsiteURL         string
	ImageURL           string
	BlacklistChannelID string
	BotToken           string
	BotClientID        string
	UpdatedAt          time.Time
}

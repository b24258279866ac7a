package models

import "time"

// TransitionEvent is fired when a node's status differs from the previous cycle.
type TransitionEvent struct {
	Pubkey    string    `json:"pubkey"`
	Address   string    `json:"address"`
	Network   string    `json:"network"`
	Previous  string    `json:"previous"`
	Current   string    `json:"current"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscription binds a notification channel to a node identity.
// Channel is a Discord channel id or a webhook URL.
type Subscription struct {
	Channel string `json:"channel"`
	Pubkey  string `json:"pubkey"`
}

package domain

// FollowEntry marks a wallet whose swaps produce real-time alerts.
type FollowEntry struct {
	Wallet    string `json:"wallet"`
	CreatedAt int64  `json:"created_at"` // unix seconds
}

// AnnouncedEntry records the first time a wallet qualified as a long-term winner.
// Entries are write-once.
type AnnouncedEntry struct {
	Wallet      string `json:"wallet"`
	AnnouncedAt int64  `json:"announced_at"` // unix seconds
}

package notify

import (
	"context"
	"sync"
)

// Recorder keeps every event in memory. Useful in tests and for the
// last-events view of the status endpoint.
type Recorder struct {
	mu           sync.Mutex
	realized     []RealizedTradeEvent
	followed     []FollowedSwapEvent
	winners      []WinnerEvent
	leaderboards []LeaderboardEvent
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RealizedTrade(_ context.Context, e RealizedTradeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.realized = append(r.realized, e)
}

func (r *Recorder) FollowedSwap(_ context.Context, e FollowedSwapEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followed = append(r.followed, e)
}

func (r *Recorder) Winner(_ context.Context, e WinnerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winners = append(r.winners, e)
}

func (r *Recorder) Leaderboard(_ context.Context, e LeaderboardEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaderboards = append(r.leaderboards, e)
}

// RealizedTrades returns a copy of the recorded realized trade events.
func (r *Recorder) RealizedTrades() []RealizedTradeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RealizedTradeEvent(nil), r.realized...)
}

// FollowedSwaps returns a copy of the recorded followed swap events.
func (r *Recorder) FollowedSwaps() []FollowedSwapEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FollowedSwapEvent(nil), r.followed...)
}

// Winners returns a copy of the recorded winner events.
func (r *Recorder) Winners() []WinnerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WinnerEvent(nil), r.winners...)
}

// Leaderboards returns a copy of the recorded leaderboard events.
func (r *Recorder) Leaderboards() []LeaderboardEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LeaderboardEvent(nil), r.leaderboards...)
}

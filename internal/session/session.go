// Package session holds the per-seeker browsing cursors in a TTL-backed
// external store. A session is an ordered list of candidate IDs plus a
// cursor; the match-browsing and liked-by-browsing sessions are
// independent state machines. Expiry silently returns a session to the
// empty state, which callers must treat the same as an exhausted one.
package session

import "time"

// Default lifetimes. Quiz sessions are shorter-lived than browsing ones.
const (
	BrowseTTL = time.Hour
	QuizTTL   = 30 * time.Minute
)

// Entry is one browsable candidate: the ID plus the tier/score metadata
// needed to redisplay it without rescoring
type Entry struct {
	ID       int64 `json:"id"`
	Priority int   `json:"priority"`
	Score    int   `json:"score"`
}

// MatchSession is the match-browsing cursor state
type MatchSession struct {
	Entries []Entry `json:"entries"`
	Index   int     `json:"index"`
}

// Current returns the entry under the cursor, or ok=false when the
// session is exhausted
func (s *MatchSession) Current() (Entry, bool) {
	if s == nil || s.Index < 0 || s.Index >= len(s.Entries) {
		return Entry{}, false
	}
	return s.Entries[s.Index], true
}

// Advance moves the cursor forward one entry and returns the newly
// current one, or ok=false when the list is exhausted
func (s *MatchSession) Advance() (Entry, bool) {
	s.Index++
	return s.Current()
}

// Exhausted reports whether the cursor has moved past the last entry
func (s *MatchSession) Exhausted() bool {
	return s == nil || s.Index >= len(s.Entries)
}

// LikedBySession is the liked-by-browsing cursor state, independent of
// the match session
type LikedBySession struct {
	UserIDs []int64 `json:"user_ids"`
	Index   int     `json:"index"`
}

// Current returns the user ID under the cursor, or ok=false when exhausted
func (s *LikedBySession) Current() (int64, bool) {
	if s == nil || s.Index < 0 || s.Index >= len(s.UserIDs) {
		return 0, false
	}
	return s.UserIDs[s.Index], true
}

// Advance moves the cursor forward one entry
func (s *LikedBySession) Advance() (int64, bool) {
	s.Index++
	return s.Current()
}

// Exhausted reports whether the cursor has moved past the last entry
func (s *LikedBySession) Exhausted() bool {
	return s == nil || s.Index >= len(s.UserIDs)
}

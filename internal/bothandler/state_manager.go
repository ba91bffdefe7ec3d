package bothandler

import (
	"sync"
	"time"
)

// EditState tracks which profile field a user is currently being
// prompted for. One state per user; issuing a new prompt replaces it.
type EditState string

const (
	EditStateNone      EditState = ""
	EditStateName      EditState = "awaiting_name"
	EditStateBio       EditState = "awaiting_bio"
	EditStateBirthDate EditState = "awaiting_birth_date"
	EditStateInterests EditState = "awaiting_interests"
	EditStateLocation  EditState = "awaiting_location"
	EditStateMood      EditState = "awaiting_mood"
)

type editEntry struct {
	state     EditState
	expiresAt time.Time
}

// StateManager holds in-flight profile edit prompts. Browse cursors live
// in Redis because they must survive restarts; an interrupted edit
// prompt is cheap to lose, so this stays in memory.
type StateManager struct {
	entries map[int64]editEntry
	mutex   sync.RWMutex
	ttl     time.Duration
}

func NewStateManager(ttl time.Duration) *StateManager {
	return &StateManager{
		entries: make(map[int64]editEntry),
		ttl:     ttl,
	}
}

// Get returns the user's pending edit state, if any
func (sm *StateManager) Get(userID int64) EditState {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	entry, ok := sm.entries[userID]
	if !ok || time.Now().After(entry.expiresAt) {
		return EditStateNone
	}
	return entry.state
}

// Set records a pending edit prompt for the user
func (sm *StateManager) Set(userID int64, state EditState) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if state == EditStateNone {
		delete(sm.entries, userID)
		return
	}
	sm.entries[userID] = editEntry{state: state, expiresAt: time.Now().Add(sm.ttl)}
}

// Clear drops the user's pending edit prompt
func (sm *StateManager) Clear(userID int64) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	delete(sm.entries, userID)
}

// StartCleanupRoutine evicts expired entries in the background
func (sm *StateManager) StartCleanupRoutine(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			sm.cleanup()
		}
	}()
}

func (sm *StateManager) cleanup() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	now := time.Now()
	for userID, entry := range sm.entries {
		if now.After(entry.expiresAt) {
			delete(sm.entries, userID)
		}
	}
}

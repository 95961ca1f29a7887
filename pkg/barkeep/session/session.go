package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultProvider is assigned to channels that have never picked one.
	DefaultProvider = "chatgpt"
	// DefaultModel is assigned alongside DefaultProvider.
	DefaultModel = "gpt-3.5-turbo"

	// MaxHistoryPerProvider caps each provider's conversation history.
	// Older entries fall off the front.
	MaxHistoryPerProvider = 50

	// InactivityWindow is how long a channel may sit idle before its
	// conversation histories are reset. Settings survive expiry.
	InactivityWindow = 10 * time.Hour
)

// Message is one turn in a channel's conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChannelSession holds everything barkeep remembers about one channel:
// the active provider/model pair, prompt configuration, listen mode, and
// an independent conversation history per provider.
type ChannelSession struct {
	ChannelID    string               `json:"channel_id"`
	Provider     string               `json:"provider"`
	Model        string               `json:"model"`
	PromptIndex  int                  `json:"prompt_index"`
	CustomPrompt string               `json:"custom_prompt,omitempty"`
	ListenMode   bool                 `json:"listen_mode"`
	Histories    map[string][]Message `json:"histories"`
	LastActivity time.Time            `json:"last_activity"`
}

// NewChannelSession returns a session with the channel defaults applied.
func NewChannelSession(channelID string) *ChannelSession {
	return &ChannelSession{
		ChannelID:   channelID,
		Provider:    DefaultProvider,
		Model:       DefaultModel,
		PromptIndex: 0,
		Histories:   make(map[string][]Message),
	}
}

// History returns the conversation history for a provider. The returned
// slice is the live backing array; callers outside the store must not
// retain it across mutations.
func (s *ChannelSession) History(provider string) []Message {
	return s.Histories[provider]
}

// AppendMessage records one turn in a provider's history, trimming the
// oldest entries past MaxHistoryPerProvider.
func (s *ChannelSession) AppendMessage(provider, role, content string, at time.Time) {
	if s.Histories == nil {
		s.Histories = make(map[string][]Message)
	}
	h := append(s.Histories[provider], Message{Role: role, Content: content, Timestamp: at})
	if over := len(h) - MaxHistoryPerProvider; over > 0 {
		h = h[over:]
	}
	s.Histories[provider] = h
}

// ClearHistory drops the history for one provider. Other providers'
// histories and all channel settings are untouched.
func (s *ChannelSession) ClearHistory(provider string) {
	delete(s.Histories, provider)
}

// clearAllHistories resets every provider's history, keeping settings.
func (s *ChannelSession) clearAllHistories() {
	s.Histories = make(map[string][]Message)
}

func (s *ChannelSession) clone() *ChannelSession {
	cp := *s
	cp.Histories = make(map[string][]Message, len(s.Histories))
	for provider, msgs := range s.Histories {
		cp.Histories[provider] = append([]Message(nil), msgs...)
	}
	return &cp
}

// Persister stores sessions durably. Implementations must return
// (nil, nil) from LoadSession when no session exists for the channel.
type Persister interface {
	LoadSession(channelID string) (*ChannelSession, error)
	SaveSession(s *ChannelSession) error
	LoadAll() ([]*ChannelSession, error)
}

// Store keeps the live session per channel. All reads and writes for one
// channel go through that channel's lock in the shared lock domain, so a
// mutation is observed either completely or not at all.
type Store struct {
	locks   *ChannelLocks
	persist Persister
	logger  *slog.Logger
	window  time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*ChannelSession
}

// NewStore creates a session store backed by the given persister. The
// persister may be nil for memory-only operation.
func NewStore(persist Persister, locks *ChannelLocks, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if locks == nil {
		locks = NewChannelLocks()
	}
	return &Store{
		locks:    locks,
		persist:  persist,
		logger:   logger.With("component", "session"),
		window:   InactivityWindow,
		now:      time.Now,
		sessions: make(map[string]*ChannelSession),
	}
}

// Locks exposes the store's lock domain so other engines can serialize
// against the same channel identities.
func (st *Store) Locks() *ChannelLocks { return st.locks }

// Get returns a snapshot of the channel's session, creating it with
// defaults on first access. Expired histories are reset before the
// snapshot is taken.
func (st *Store) Get(channelID string) (ChannelSession, error) {
	unlock := st.locks.Lock(channelID)
	defer unlock()

	cur, err := st.loadLocked(channelID)
	if err != nil {
		return ChannelSession{}, err
	}
	if st.expireLocked(cur) {
		if err := st.saveLocked(cur); err != nil {
			return ChannelSession{}, err
		}
	}
	return *cur.clone(), nil
}

// Mutate applies fn to the channel's session under its exclusive lock and
// persists the result. If fn returns an error the session is left exactly
// as it was. The returned snapshot reflects the committed state.
func (st *Store) Mutate(channelID string, fn func(*ChannelSession) error) (ChannelSession, error) {
	unlock := st.locks.Lock(channelID)
	defer unlock()

	cur, err := st.loadLocked(channelID)
	if err != nil {
		return ChannelSession{}, err
	}
	work := cur.clone()
	st.expireLocked(work)
	if err := fn(work); err != nil {
		return ChannelSession{}, err
	}
	work.LastActivity = st.now()
	if err := st.saveLocked(work); err != nil {
		return ChannelSession{}, err
	}
	st.mu.Lock()
	st.sessions[channelID] = work
	st.mu.Unlock()
	return *work.clone(), nil
}

// SweepExpired resets the histories of every session idle past the
// inactivity window, in memory and in the persister. It returns the
// number of sessions reset.
func (st *Store) SweepExpired() int {
	ids := st.knownChannelIDs()

	reset := 0
	for _, id := range ids {
		func() {
			unlock := st.locks.Lock(id)
			defer unlock()

			cur, err := st.loadLocked(id)
			if err != nil {
				st.logger.Warn("sweep: load failed", "channel", id, "error", err)
				return
			}
			if !st.expireLocked(cur) {
				return
			}
			if err := st.saveLocked(cur); err != nil {
				st.logger.Warn("sweep: save failed", "channel", id, "error", err)
				return
			}
			reset++
		}()
	}
	if reset > 0 {
		st.logger.Info("swept expired sessions", "reset", reset)
	}
	return reset
}

func (st *Store) knownChannelIDs() []string {
	seen := make(map[string]bool)
	st.mu.Lock()
	for id := range st.sessions {
		seen[id] = true
	}
	st.mu.Unlock()

	if st.persist != nil {
		all, err := st.persist.LoadAll()
		if err != nil {
			st.logger.Warn("sweep: listing persisted sessions failed", "error", err)
		}
		for _, s := range all {
			seen[s.ChannelID] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids
}

// loadLocked returns the cached session for a channel, pulling it from the
// persister or creating defaults on first access. Caller holds the
// channel lock.
func (st *Store) loadLocked(channelID string) (*ChannelSession, error) {
	st.mu.Lock()
	cur, ok := st.sessions[channelID]
	st.mu.Unlock()
	if ok {
		return cur, nil
	}

	if st.persist != nil {
		loaded, err := st.persist.LoadSession(channelID)
		if err != nil {
			return nil, fmt.Errorf("loading session for %s: %w", channelID, err)
		}
		if loaded != nil {
			if loaded.Histories == nil {
				loaded.Histories = make(map[string][]Message)
			}
			st.mu.Lock()
			st.sessions[channelID] = loaded
			st.mu.Unlock()
			return loaded, nil
		}
	}

	cur = NewChannelSession(channelID)
	st.mu.Lock()
	st.sessions[channelID] = cur
	st.mu.Unlock()
	return cur, nil
}

// expireLocked resets histories when the session has been idle past the
// window. Settings (provider, model, prompt, listen mode) survive.
// Reports whether anything was reset.
func (st *Store) expireLocked(s *ChannelSession) bool {
	if s.LastActivity.IsZero() || len(s.Histories) == 0 {
		return false
	}
	if st.now().Sub(s.LastActivity) <= st.window {
		return false
	}
	s.clearAllHistories()
	st.logger.Info("session histories expired", "channel", s.ChannelID)
	return true
}

func (st *Store) saveLocked(s *ChannelSession) error {
	if st.persist == nil {
		return nil
	}
	if err := st.persist.SaveSession(s); err != nil {
		return fmt.Errorf("saving session for %s: %w", s.ChannelID, err)
	}
	return nil
}

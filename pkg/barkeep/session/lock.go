package session

import "sync"

// ChannelLocks is the per-channel lock domain shared by every engine that
// mutates channel-scoped state (sessions, playlists, clip jobs). Operations
// for one channel identity are mutually exclusive; operations on distinct
// channels never block each other. There is no global lock.
type ChannelLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewChannelLocks creates an empty lock domain.
func NewChannelLocks() *ChannelLocks {
	return &ChannelLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for a channel identity, creating it on first use.
// The returned function releases it.
func (c *ChannelLocks) Lock(channelID string) func() {
	c.mu.Lock()
	l, ok := c.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[channelID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Package music maintains an ordered per-channel playlist with a current
// position pointer, playlist file persistence, and playback status.
package music

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jholhewres/barkeep/pkg/barkeep/session"
)

// EntryKind distinguishes local files from remote URLs.
type EntryKind int

const (
	Local EntryKind = iota
	Remote
)

func (k EntryKind) String() string {
	if k == Remote {
		return "remote"
	}
	return "local"
}

// Entry is one playlist item. Location is either a bare local filename or
// a fully-qualified URL; it is persisted verbatim.
type Entry struct {
	Kind     EntryKind
	Location string
}

func classify(location string) Entry {
	kind := Local
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		kind = Remote
	}
	return Entry{Kind: kind, Location: location}
}

// InsertMode controls where new entries land relative to the current
// position.
type InsertMode int

const (
	// InsertAndPlay places the new entries right after the current one
	// and moves the pointer to the first of them.
	InsertAndPlay InsertMode = iota
	// Queue places the new entries at the same position but leaves the
	// pointer where it is.
	Queue
)

var (
	// ErrEmptyQueue is returned by navigation on a playlist with no entries.
	ErrEmptyQueue = errors.New("playlist is empty")
	// ErrEndOfQueue is returned by Next at the last entry. The playlist
	// is not modified.
	ErrEndOfQueue = errors.New("end of queue")
	// ErrStartOfQueue is returned by Previous at the first entry. The
	// playlist is not modified.
	ErrStartOfQueue = errors.New("start of queue")
)

// Playlist is a snapshot of one channel's queue.
type Playlist struct {
	Entries      []Entry
	CurrentIndex int
}

// Current returns the entry under the pointer, or false when empty.
func (p Playlist) Current() (Entry, bool) {
	if len(p.Entries) == 0 {
		return Entry{}, false
	}
	return p.Entries[p.CurrentIndex], true
}

// StatePersister records whether playback is active for a channel.
// *session.SQLiteStore satisfies it.
type StatePersister interface {
	SaveMusicState(session.MusicState) error
	LoadMusicState(channelID string) (*session.MusicState, error)
}

// Engine owns the per-channel playlists. Every mutation runs under the
// shared channel lock domain and rewrites the channel's playlist file
// atomically, so a persisted index is never outside the persisted
// entries' bounds.
type Engine struct {
	dir    string
	locks  *session.ChannelLocks
	state  StatePersister
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a playlist engine storing playlist files under dir.
// state may be nil when playback status tracking is not wanted.
func NewEngine(dir string, state StatePersister, locks *session.ChannelLocks, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if locks == nil {
		locks = session.NewChannelLocks()
	}
	return &Engine{
		dir:    dir,
		locks:  locks,
		state:  state,
		logger: logger.With("component", "music"),
		now:    time.Now,
	}
}

// Initialize creates an empty playlist for the channel, replacing any
// existing one.
func (e *Engine) Initialize(channelID string) error {
	unlock := e.locks.Lock(channelID)
	defer unlock()
	return e.save(channelID, Playlist{})
}

// AddEntries inserts the given locations after the current position and,
// in InsertAndPlay mode, moves the pointer to the first inserted entry.
// Returns the resulting playlist snapshot.
func (e *Engine) AddEntries(channelID string, locations []string, mode InsertMode) (Playlist, error) {
	if len(locations) == 0 {
		return Playlist{}, errors.New("no entries given")
	}
	unlock := e.locks.Lock(channelID)
	defer unlock()

	p, err := e.load(channelID)
	if err != nil {
		return Playlist{}, err
	}

	entries := make([]Entry, 0, len(locations))
	for _, loc := range locations {
		entries = append(entries, classify(loc))
	}

	insertAt := 0
	if len(p.Entries) > 0 {
		insertAt = p.CurrentIndex + 1
	}
	p.Entries = append(p.Entries[:insertAt], append(entries, p.Entries[insertAt:]...)...)
	if mode == InsertAndPlay {
		p.CurrentIndex = insertAt
	}

	if err := e.save(channelID, p); err != nil {
		return Playlist{}, err
	}
	e.logger.Info("entries added", "channel", channelID, "count", len(entries), "index", p.CurrentIndex)
	return p, nil
}

// Next advances the pointer by one and returns the new current entry.
// At the last entry it returns ErrEndOfQueue and changes nothing.
func (e *Engine) Next(channelID string) (Entry, error) {
	return e.step(channelID, +1)
}

// Previous moves the pointer back by one and returns the new current
// entry. At the first entry it returns ErrStartOfQueue and changes
// nothing.
func (e *Engine) Previous(channelID string) (Entry, error) {
	return e.step(channelID, -1)
}

func (e *Engine) step(channelID string, delta int) (Entry, error) {
	unlock := e.locks.Lock(channelID)
	defer unlock()

	p, err := e.load(channelID)
	if err != nil {
		return Entry{}, err
	}
	if len(p.Entries) == 0 {
		return Entry{}, ErrEmptyQueue
	}
	next := p.CurrentIndex + delta
	if next >= len(p.Entries) {
		return Entry{}, ErrEndOfQueue
	}
	if next < 0 {
		return Entry{}, ErrStartOfQueue
	}
	p.CurrentIndex = next
	if err := e.save(channelID, p); err != nil {
		return Entry{}, err
	}
	return p.Entries[next], nil
}

// Current returns the entry under the pointer without moving it.
func (e *Engine) Current(channelID string) (Entry, error) {
	unlock := e.locks.Lock(channelID)
	defer unlock()

	p, err := e.load(channelID)
	if err != nil {
		return Entry{}, err
	}
	cur, ok := p.Current()
	if !ok {
		return Entry{}, ErrEmptyQueue
	}
	return cur, nil
}

// Snapshot returns a copy of the channel's full playlist.
func (e *Engine) Snapshot(channelID string) (Playlist, error) {
	unlock := e.locks.Lock(channelID)
	defer unlock()
	return e.load(channelID)
}

// SetStatus records whether playback is active and in which voice
// channel.
func (e *Engine) SetStatus(channelID string, playing bool, voiceChannelID string) error {
	if e.state == nil {
		return nil
	}
	unlock := e.locks.Lock(channelID)
	defer unlock()
	return e.state.SaveMusicState(session.MusicState{
		ChannelID:      channelID,
		Playing:        playing,
		VoiceChannelID: voiceChannelID,
		UpdatedAt:      e.now(),
	})
}

// Status returns the recorded playback state, or nil when none exists.
func (e *Engine) Status(channelID string) (*session.MusicState, error) {
	if e.state == nil {
		return nil, nil
	}
	return e.state.LoadMusicState(channelID)
}

func (e *Engine) path(channelID string) string {
	return filepath.Join(e.dir, channelID+".playlist")
}

// load reads the channel's playlist file: first line is the current
// index, each following line one entry. A missing file is an empty
// playlist. An index outside the entries' bounds is clamped.
func (e *Engine) load(channelID string) (Playlist, error) {
	data, err := os.ReadFile(e.path(channelID))
	if errors.Is(err, os.ErrNotExist) {
		return Playlist{}, nil
	}
	if err != nil {
		return Playlist{}, fmt.Errorf("reading playlist: %w", err)
	}

	var p Playlist
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return Playlist{}, nil
	}
	idx, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Playlist{}, fmt.Errorf("corrupt playlist index %q: %w", lines[0], err)
	}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		p.Entries = append(p.Entries, classify(line))
	}
	p.CurrentIndex = clamp(idx, len(p.Entries))
	return p, nil
}

// save writes the playlist to a temp file in the same directory and
// renames it over the old one, so readers never observe a partial write.
func (e *Engine) save(channelID string, p Playlist) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("creating playlist directory: %w", err)
	}
	p.CurrentIndex = clamp(p.CurrentIndex, len(p.Entries))

	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", p.CurrentIndex)
	for _, entry := range p.Entries {
		b.WriteString(entry.Location)
		b.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(e.dir, channelID+".playlist.*")
	if err != nil {
		return fmt.Errorf("creating temp playlist: %w", err)
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing playlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing playlist: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.path(channelID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing playlist: %w", err)
	}
	return nil
}

func clamp(idx, n int) int {
	if n == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS channel_settings (
	channel_id    TEXT PRIMARY KEY,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	prompt_index  INTEGER NOT NULL DEFAULT 0,
	custom_prompt TEXT NOT NULL DEFAULT '',
	listen_mode   INTEGER NOT NULL DEFAULT 0,
	last_activity TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chat_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id TEXT NOT NULL,
	provider   TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_history_channel
	ON chat_history(channel_id, provider, id);

CREATE TABLE IF NOT EXISTS music_state (
	channel_id       TEXT PRIMARY KEY,
	playing          INTEGER NOT NULL DEFAULT 0,
	voice_channel_id TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMP NOT NULL
);
`

// SQLiteStore persists sessions and music playback state in a single
// SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Parent directories are created as required.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// SaveSession writes the session's settings and histories in one
// transaction. Histories are rewritten wholesale; this keeps the row set
// exactly in step with the in-memory cap.
func (s *SQLiteStore) SaveSession(sess *ChannelSession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var lastActivity any
	if !sess.LastActivity.IsZero() {
		lastActivity = sess.LastActivity.UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO channel_settings
			(channel_id, provider, model, prompt_index, custom_prompt, listen_mode, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			provider = excluded.provider,
			model = excluded.model,
			prompt_index = excluded.prompt_index,
			custom_prompt = excluded.custom_prompt,
			listen_mode = excluded.listen_mode,
			last_activity = excluded.last_activity`,
		sess.ChannelID, sess.Provider, sess.Model, sess.PromptIndex,
		sess.CustomPrompt, boolToInt(sess.ListenMode), lastActivity)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM chat_history WHERE channel_id = ?`, sess.ChannelID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO chat_history (channel_id, provider, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing history insert: %w", err)
	}
	defer stmt.Close()
	for provider, msgs := range sess.Histories {
		for _, m := range msgs {
			if _, err := stmt.Exec(sess.ChannelID, provider, m.Role, m.Content, m.Timestamp.UTC()); err != nil {
				return fmt.Errorf("saving history entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// LoadSession reads one channel's session. Returns (nil, nil) when the
// channel has no persisted settings.
func (s *SQLiteStore) LoadSession(channelID string) (*ChannelSession, error) {
	sess := &ChannelSession{ChannelID: channelID, Histories: make(map[string][]Message)}

	var listen int
	var lastActivity sql.NullTime
	err := s.db.QueryRow(`
		SELECT provider, model, prompt_index, custom_prompt, listen_mode, last_activity
		FROM channel_settings WHERE channel_id = ?`, channelID).
		Scan(&sess.Provider, &sess.Model, &sess.PromptIndex, &sess.CustomPrompt, &listen, &lastActivity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	sess.ListenMode = listen != 0
	if lastActivity.Valid {
		sess.LastActivity = lastActivity.Time
	}

	if err := s.loadHistories(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// LoadAll reads every persisted session.
func (s *SQLiteStore) LoadAll() ([]*ChannelSession, error) {
	rows, err := s.db.Query(`SELECT channel_id FROM channel_settings`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning channel id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sessions := make([]*ChannelSession, 0, len(ids))
	for _, id := range ids {
		sess, err := s.LoadSession(id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}

func (s *SQLiteStore) loadHistories(sess *ChannelSession) error {
	rows, err := s.db.Query(`
		SELECT provider, role, content, timestamp
		FROM chat_history WHERE channel_id = ? ORDER BY id`, sess.ChannelID)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var provider string
		var m Message
		if err := rows.Scan(&provider, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return fmt.Errorf("scanning history entry: %w", err)
		}
		sess.Histories[provider] = append(sess.Histories[provider], m)
	}
	return rows.Err()
}

// MusicState is the persisted playback state for a channel. The playlist
// itself lives in the channel's playlist file; this row only records
// whether playback is active and where.
type MusicState struct {
	ChannelID      string
	Playing        bool
	VoiceChannelID string
	UpdatedAt      time.Time
}

// SaveMusicState upserts a channel's playback state.
func (s *SQLiteStore) SaveMusicState(st MusicState) error {
	_, err := s.db.Exec(`
		INSERT INTO music_state (channel_id, playing, voice_channel_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			playing = excluded.playing,
			voice_channel_id = excluded.voice_channel_id,
			updated_at = excluded.updated_at`,
		st.ChannelID, boolToInt(st.Playing), st.VoiceChannelID, st.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving music state: %w", err)
	}
	return nil
}

// LoadMusicState reads a channel's playback state. Returns (nil, nil)
// when none was ever recorded.
func (s *SQLiteStore) LoadMusicState(channelID string) (*MusicState, error) {
	st := MusicState{ChannelID: channelID}
	var playing int
	err := s.db.QueryRow(`
		SELECT playing, voice_channel_id, updated_at
		FROM music_state WHERE channel_id = ?`, channelID).
		Scan(&playing, &st.VoiceChannelID, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading music state: %w", err)
	}
	st.Playing = playing != 0
	return &st, nil
}

// Stats summarizes the database contents for the $db stats command.
type Stats struct {
	Channels    int
	HistoryRows int
	MusicRows   int
	FileSize    int64
	PerProvider map[string]int
}

// Stats counts sessions, history rows and playback rows.
func (s *SQLiteStore) Stats() (Stats, error) {
	st := Stats{PerProvider: make(map[string]int)}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM channel_settings`).Scan(&st.Channels); err != nil {
		return st, fmt.Errorf("counting channels: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chat_history`).Scan(&st.HistoryRows); err != nil {
		return st, fmt.Errorf("counting history: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM music_state`).Scan(&st.MusicRows); err != nil {
		return st, fmt.Errorf("counting music state: %w", err)
	}
	rows, err := s.db.Query(`SELECT provider, COUNT(*) FROM chat_history GROUP BY provider`)
	if err != nil {
		return st, fmt.Errorf("counting per provider: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var provider string
		var n int
		if err := rows.Scan(&provider, &n); err != nil {
			return st, err
		}
		st.PerProvider[provider] = n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	if fi, err := os.Stat(s.path); err == nil {
		st.FileSize = fi.Size()
	}
	return st, nil
}

// ExportJSON writes every session as a JSON array.
func (s *SQLiteStore) ExportJSON(w io.Writer) error {
	sessions, err := s.LoadAll()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sessions); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// ImportJSON reads a JSON array of sessions (as produced by ExportJSON)
// and upserts each one. Returns the number of sessions imported.
func (s *SQLiteStore) ImportJSON(r io.Reader) (int, error) {
	var sessions []*ChannelSession
	if err := json.NewDecoder(r).Decode(&sessions); err != nil {
		return 0, fmt.Errorf("decoding import: %w", err)
	}
	for i, sess := range sessions {
		if sess.ChannelID == "" {
			return i, fmt.Errorf("session %d has no channel id", i)
		}
		if sess.Histories == nil {
			sess.Histories = make(map[string][]Message)
		}
		if err := s.SaveSession(sess); err != nil {
			return i, err
		}
	}
	return len(sessions), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

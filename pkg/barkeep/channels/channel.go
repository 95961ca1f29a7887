// Package channels defines the transport abstraction barkeep's command
// loop runs on. A Channel receives chat messages and sends rendered
// responses; richer capabilities (file upload, voice, upload limits) are
// optional extension interfaces.
package channels

import (
	"context"
	"errors"
	"time"
)

// ErrDisconnected is returned by send operations while the transport is
// not connected.
var ErrDisconnected = errors.New("channel is not connected")

// Channel is a messaging transport.
type Channel interface {
	// Name returns the transport identifier (e.g. "discord").
	Name() string

	// Connect establishes the connection to the platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Send delivers a message to the given chat.
	Send(ctx context.Context, to string, message *OutgoingMessage) error

	// Receive returns a Go channel emitting incoming messages.
	Receive() <-chan *IncomingMessage

	// IsConnected reports connection state.
	IsConnected() bool
}

// FileChannel is implemented by transports that can upload files.
type FileChannel interface {
	Channel

	// SendFile uploads a local file to the chat, with an optional caption.
	SendFile(ctx context.Context, to, path, caption string) error

	// UploadLimitMB returns the chat's file upload ceiling in MB.
	UploadLimitMB(chatID string) float64
}

// VoiceChannel is implemented by transports with voice playback.
type VoiceChannel interface {
	Channel

	// JoinVoice connects to the voice channel the named user occupies
	// and returns the voice channel's id.
	JoinVoice(ctx context.Context, chatID, userID string) (string, error)

	// LeaveVoice disconnects from voice in the chat's guild.
	LeaveVoice(chatID string) error
}

// IncomingMessage is a chat message received from a transport.
type IncomingMessage struct {
	ID        string
	Channel   string
	From      string
	FromName  string
	ChatID    string
	IsGroup   bool
	Content   string
	Timestamp time.Time
	ReplyTo   string
}

// OutgoingMessage is a rendered response to deliver.
type OutgoingMessage struct {
	Content string
	ReplyTo string
}

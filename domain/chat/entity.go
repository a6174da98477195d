// Package chat defines the events relayed between chat clients and server processes.
package chat

import "time"

// Event type literals carried in the "type" field.
const (
	TypeMessage     = "message"
	TypeTypingStart = "typing_start"
	TypeTypingStop  = "typing_stop"
)

// Event is a relayed chat event. The set of implementations is closed:
// ChatMessage and TypingEvent.
type Event interface {
	// Room returns the chat room the event belongs to.
	Room() string
	// EventType returns the value of the "type" field.
	EventType() string

	sealed()
}

// ChatMessage is a message posted by a user to a room.
type ChatMessage struct {
	ChatID    string `json:"chatId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

// TypingEvent signals that a user started or stopped typing in a room.
type TypingEvent struct {
	ChatID    string `json:"chatId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

// Compile-time interface checks.
var (
	_ Event = ChatMessage{}
	_ Event = TypingEvent{}
)

// NewChatMessage creates a message event stamped with the current time in
// milliseconds since the epoch.
func NewChatMessage(chatID, userID, username, content string) ChatMessage {
	return ChatMessage{
		ChatID:    chatID,
		UserID:    userID,
		Username:  username,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Type:      TypeMessage,
	}
}

// NewTypingEvent creates a typing event stamped with the current time.
// eventType is expected to be TypeTypingStart or TypeTypingStop; it is not
// validated here.
func NewTypingEvent(chatID, userID, username, eventType string) TypingEvent {
	return TypingEvent{
		ChatID:    chatID,
		UserID:    userID,
		Username:  username,
		Timestamp: time.Now().UnixMilli(),
		Type:      eventType,
	}
}

// Room returns the chat ID.
func (m ChatMessage) Room() string { return m.ChatID }

// EventType always returns TypeMessage.
func (m ChatMessage) EventType() string { return m.Type }

func (ChatMessage) sealed() {}

// Room returns the chat ID.
func (e TypingEvent) Room() string { return e.ChatID }

// EventType returns TypeTypingStart or TypeTypingStop.
func (e TypingEvent) EventType() string { return e.Type }

func (TypingEvent) sealed() {}

// IsTypingType reports whether t is one of the two typing literals.
func IsTypingType(t string) bool {
	return t == TypeTypingStart || t == TypeTypingStop
}

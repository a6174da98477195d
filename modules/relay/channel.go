package relay

import (
	"fmt"
	"strings"
)

const (
	// ChannelPrefix starts every room channel name.
	ChannelPrefix = "chat:"
	// ChannelSuffix ends every room channel name.
	ChannelSuffix = ":events"
	// ChannelPattern matches every room channel.
	ChannelPattern = ChannelPrefix + "*" + ChannelSuffix
)

// RoomChannel returns the relay channel for a room.
func RoomChannel(chatID string) string {
	return ChannelPrefix + chatID + ChannelSuffix
}

// ChatIDFromChannel recovers the room id from a channel name produced by
// RoomChannel. Only the outer prefix and suffix are stripped, so ids that
// contain ':' survive the round trip.
func ChatIDFromChannel(channel string) (string, error) {
	rest, ok := strings.CutPrefix(channel, ChannelPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	chatID, ok := strings.CutSuffix(rest, ChannelSuffix)
	if !ok || chatID == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	return chatID, nil
}

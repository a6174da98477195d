package wsserver

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handshake attribute names, used both as query parameters and as request
// locals populated by the upgrade middleware.
const (
	attrUserID   = "userId"
	attrUsername = "username"
	attrChatID   = "chatId"
)

// Headers a fronting proxy may set to supply handshake attributes.
const (
	headerUserID   = "X-User-Id"
	headerUsername = "X-Username"
	headerChatID   = "X-Chat-Id"
)

const (
	defaultUsername = "Anonymous"
	defaultChatID   = "general"
)

// Identity holds the attributes resolved once when a connection is accepted.
type Identity struct {
	UserID   string
	Username string
	ChatID   string
}

// ResolveIdentity resolves each attribute from the query string, then from
// request locals, then from its default. The default user id is derived
// from connID.
func ResolveIdentity(query func(string) string, locals func(string) any, connID string) Identity {
	lookup := func(key, fallback string) string {
		if v := query(key); v != "" {
			return v
		}
		if v, ok := locals(key).(string); ok && v != "" {
			return v
		}
		return fallback
	}

	return Identity{
		UserID:   lookup(attrUserID, "anonymous_"+connID),
		Username: lookup(attrUsername, defaultUsername),
		ChatID:   lookup(attrChatID, defaultChatID),
	}
}

// upgradeMiddleware rejects non-upgrade requests to /ws and copies proxy
// identity headers into locals for ResolveIdentity.
func upgradeMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	for header, key := range map[string]string{
		headerUserID:   attrUserID,
		headerUsername: attrUsername,
		headerChatID:   attrChatID,
	} {
		if v := c.Get(header); v != "" {
			c.Locals(key, v)
		}
	}
	return c.Next()
}

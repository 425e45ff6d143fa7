package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the auth layer in front of this service.
const (
	USER_ID   = "user_id"
	USER_NAME = "user_name"
)

// userIDFromLocals returns the authenticated user id, or 0 for anonymous requests.
func userIDFromLocals(c *fiber.Ctx) uint {
	switch v := c.Locals(USER_ID).(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

// ClientIP determines the client address considering Cloudflare and proxy headers.
func ClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}

	// X-Forwarded-For can contain a list of IPs - the first one is the original client IP
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	// IPv4-mapped IPv6 addresses (::ffff:192.168.1.1)
	return strings.TrimPrefix(c.IP(), "::ffff:")
}

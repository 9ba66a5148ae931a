package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront-checkout/internal/domain/auth"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

const (
	apiKeyHeader = "X-Api-Key"
	actorKey     = "actor"
	actorRoleKey = "actorRole"
)

// Security authenticates requests via HMAC-SHA256 hashed API keys and
// attaches the actor role the key carries.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security middleware provider with the given API key
// repository and HMAC pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{apikeys: apikeys, pepper: pepper}
}

// Authenticate validates the API key header: the key's HMAC-SHA256 is looked
// up and compared in constant time. On success the actor identity and role
// are stored on the request context.
func (s *Security) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := s.apikeys.FindByHash(c.Request.Context(), hex.EncodeToString(hash))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded.
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(actorKey, info.Name)
		c.Set(actorRoleKey, roleFromKey(info.Role))
		c.Next()
	}
}

// RequireAdmin rejects requests whose key does not carry the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorRole(c) != order.ActorAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// ActorRole returns the authenticated actor role, defaulting to customer.
func ActorRole(c *gin.Context) order.Actor {
	if v, ok := c.Get(actorRoleKey); ok {
		if role, ok := v.(order.Actor); ok {
			return role
		}
	}
	return order.ActorCustomer
}

// Actor returns the authenticated actor name (the API key's subject).
func Actor(c *gin.Context) string {
	return c.GetString(actorKey)
}

func roleFromKey(role string) order.Actor {
	if role == string(order.ActorAdmin) {
		return order.ActorAdmin
	}
	return order.ActorCustomer
}

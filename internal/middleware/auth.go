package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Hizbul38/book-porter-api/internal/model"
)

const principalKey = "principal"

func parseToken(header, secret string) (*model.Principal, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}

	token, err := jwt.Parse(header[7:], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, false
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	return &model.Principal{ID: userID, Email: email, Name: name, Role: model.Role(role)}, true
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := parseToken(c.GetHeader("Authorization"), secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// OptionalAuth attaches a principal when a valid token is present and lets
// anonymous requests through. Catalog reads use it so librarians and admins
// see their unpublished books on the same endpoints readers use.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := parseToken(c.GetHeader("Authorization"), secret); ok {
			c.Set(principalKey, p)
		}
		c.Next()
	}
}

func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p != nil {
			for _, r := range roles {
				if p.Role == r {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// GetPrincipal returns the authenticated caller, or nil for anonymous.
func GetPrincipal(c *gin.Context) *model.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(*model.Principal)
	return p
}

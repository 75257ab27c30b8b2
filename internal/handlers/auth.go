package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/odunayomike/report-card-generator-sub003/internal/config"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

const (
	userIDKey   = "user_id"
	userRoleKey = "user_role"

	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// TokenParser turns a bearer token into casdoor claims. *casdoorsdk.Client satisfies it.
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// NewTokenParser builds a casdoor client from config.
func NewTokenParser(cfg config.CasdoorConfig) TokenParser {
	return casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.OrganizationName,
		cfg.ApplicationName,
	)
}

// CasdoorAuthMiddleware authenticates every request with a casdoor-issued JWT.
func CasdoorAuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "authorization header missing or malformed")
			return
		}

		claims, err := parser.ParseJwtToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		id := claims.Id
		if id == "" {
			id = claims.Name
		}
		if id == "" {
			abortUnauthorized(c, "token carries no user id")
			return
		}

		setCaller(c, models.Caller{ID: id, Role: mapCasdoorRole(claims.User)})
		c.Next()
	}
}

// HeaderAuthMiddleware trusts X-User-ID and X-User-Role. It is meant for
// development and for deployments behind an authenticating gateway.
func HeaderAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id == "" {
			abortUnauthorized(c, HeaderUserID+" header missing")
			return
		}
		role, ok := models.ParseRole(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if !ok {
			abortUnauthorized(c, HeaderUserRole+" must be student, teacher or admin")
			return
		}

		setCaller(c, models.Caller{ID: id, Role: role})
		c.Next()
	}
}

// CallerFromContext returns the identity stored by either auth middleware.
func CallerFromContext(c *gin.Context) (models.Caller, bool) {
	id := c.GetString(userIDKey)
	raw, exists := c.Get(userRoleKey)
	if id == "" || !exists {
		return models.Caller{}, false
	}
	role, ok := raw.(models.UserRole)
	if !ok {
		return models.Caller{}, false
	}
	return models.Caller{ID: id, Role: role}, true
}

func setCaller(c *gin.Context, caller models.Caller) {
	c.Set(userIDKey, caller.ID)
	c.Set(userRoleKey, caller.Role)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Message: message,
		Code:    CodeUnauthorized,
	})
}

// mapCasdoorRole reads the user's casdoor roles first and falls back to the
// account type. Unknown users are treated as students.
func mapCasdoorRole(user casdoorsdk.User) models.UserRole {
	best := models.RoleStudent
	candidates := []string{user.Type}
	for _, r := range user.Roles {
		if r != nil {
			candidates = append(candidates, r.Name)
		}
	}
	if user.IsAdmin {
		return models.RoleAdmin
	}

	for _, name := range candidates {
		switch strings.ToLower(name) {
		case "admin", "administrator":
			return models.RoleAdmin
		case "teacher", "instructor", "educator", "staff":
			best = models.RoleTeacher
		}
	}
	return best
}

package handler

import (
	"net/http"
	"strings"

	"marketplace/reviews-service/internal/app/reviews/entity"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID   = "user_id"
	ctxEmail    = "email"
	ctxRoleName = "role_name"
)

// JWTClaims структура claims для JWT токена.
// Токен выпускается сервисом аутентификации, здесь только проверяется
type JWTClaims struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет JWT токен в запросах для Gin
type AuthMiddleware struct {
	jwtSecret string
}

// NewAuthMiddleware создает новый middleware для аутентификации
func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate проверяет JWT токен и добавляет данные пользователя в контекст Gin
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Authorization header required"})
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Invalid authorization header format"})
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(m.jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok || claims.UserID == 0 || claims.RoleName == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Invalid token claims"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRoleName, claims.RoleName)

		c.Next()
	}
}

// RequireRole пропускает запрос, если роль пользователя входит в roles
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleName, exists := c.Get(ctxRoleName)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
			return
		}

		roleNameStr, ok := roleName.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Invalid role data"})
			return
		}

		for _, role := range roles {
			if roleNameStr == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, entity.ErrorResponse{Error: "Access denied"})
	}
}

// actorFromContext собирает пользователя из данных, положенных Authenticate
func actorFromContext(c *gin.Context) (entity.Actor, bool) {
	userID, ok := c.Get(ctxUserID)
	if !ok {
		return entity.Actor{}, false
	}
	id, ok := userID.(uint)
	if !ok {
		return entity.Actor{}, false
	}

	role, _ := c.Get(ctxRoleName)
	roleStr, _ := role.(string)

	return entity.Actor{ID: id, Role: roleStr}, true
}

package auth

import (
	"net/http"
	"strings"

	"help_queue/internal/handlers"
	"help_queue/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware проверяет валидность access токена и кладёт имя и роль в контекст
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "NO_AUTH_HEADER",
				Message: "Требуется авторизация",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return handlers.AccessSecret, nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_TOKEN",
				Message: "Неверный или просроченный токен",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_TOKEN_CLAIMS",
				Message: "Невозможно прочитать claims токена",
			})
			c.Abort()
			return
		}

		name, _ := claims["name"].(string)
		role, ok := claims["role"].(string)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_ROLE",
				Message: "Невозможно извлечь роль",
			})
			c.Abort()
			return
		}

		c.Set("name", name)
		c.Set("role", role)
		c.Next()
	}
}

// InstructorMiddleware пропускает только инструкторов.
// Подключается после AuthMiddleware.
func InstructorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != handlers.RoleInstructor {
			c.JSON(http.StatusForbidden, response.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "Действие доступно только инструктору",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"campusparking/authprovider"
	"campusparking/handlers"
	"campusparking/logger"
	"campusparking/metrics"
	"campusparking/models"
	"campusparking/services"
)

func abortUnauthorized(c *gin.Context, message, err, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  false,
		"message": message,
		"error":   err,
		"code":    code,
	})
}

// AuthMiddleware 驗證 Bearer token 並計算 admin 旗標
func AuthMiddleware(secret []byte, adminEmails []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "缺少 Authorization 標頭", "Authorization header is required", "ERR_NO_AUTH_HEADER")
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "無效的 Authorization 格式", "Authorization header must be in the format 'Bearer <token>'", "ERR_INVALID_AUTH_FORMAT")
			return
		}

		claims, err := authprovider.ParseToken(secret, parts[1])
		if err != nil {
			log.Debug("Token rejected", "error", err)
			if code := jwtErrorCode(err); code == "ERR_TOKEN_EXPIRED" {
				abortUnauthorized(c, "token 已過期", "Token has expired", code)
			} else {
				abortUnauthorized(c, "無效的 token", err.Error(), code)
			}
			return
		}

		p := services.PrincipalFor(claims.User(), adminEmails)
		c.Set(handlers.PrincipalKey, p)
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log.With("user_id", p.UserID)))
		c.Next()
	}
}

// RequireAdmin 僅允許管理員
func RequireAdmin(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(handlers.PrincipalKey)
		p, ok := v.(models.Principal)
		if !ok || !p.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, handlers.APIResponse{
				Status:  false,
				Message: "權限不足",
				Error:   message,
			})
			return
		}
		c.Next()
	}
}

// RequestLogger 將 logger 放入 request context，並記錄每個請求
func RequestLogger(base logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), base))
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Inc()
		logger.FromContext(c.Request.Context()).Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// RateLimit 依來源 IP 限制請求頻率；有 Redis 時多個實例共用計數
func RateLimit(formatted string, client *redis.Client) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, errors.New("invalid rate limit: " + err.Error())
	}
	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "parking_limiter"})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStore()
	}
	return mgin.NewMiddleware(limiter.New(store, rate)), nil
}

// jwtErrorCode 區分過期與其他無效 token
func jwtErrorCode(err error) string {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "ERR_TOKEN_EXPIRED"
	}
	return "ERR_INVALID_TOKEN"
}

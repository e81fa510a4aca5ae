// Package middleware provides the Gin middleware stack: request logging,
// panic recovery, and mode-aware per-client rate limiting backed by Redis.
package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Smear6uard/Intelligent-LLM-Router/internal/mode"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/cache"
	"github.com/Smear6uard/Intelligent-LLM-Router/pkg/models"
)

// Logging logs request and response metadata: method, path, status code,
// latency, client IP, and body size.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		bodySize := c.Writer.Size()

		if query != "" {
			path = path + "?" + query
		}

		switch {
		case statusCode >= 500:
			log.Printf("[ERROR] %s %s | %d | %v | %s | %d bytes | errors: %s",
				method, path, statusCode, latency, clientIP, bodySize, c.Errors.ByType(gin.ErrorTypePrivate).String())
		case statusCode >= 400:
			log.Printf("[WARN]  %s %s | %d | %v | %s | %d bytes",
				method, path, statusCode, latency, clientIP, bodySize)
		default:
			log.Printf("[INFO]  %s %s | %d | %v | %s | %d bytes",
				method, path, statusCode, latency, clientIP, bodySize)
		}
	}
}

// RateLimits holds the fixed-window parameters for each operating mode.
type RateLimits struct {
	DemoMax    int64
	DemoWindow time.Duration
	LiveMax    int64
	LiveWindow time.Duration
}

// RateLimit enforces a per-client-IP fixed-window limit whose parameters
// follow the current operating mode. A nil cache disables limiting, and
// Redis errors fail open.
func RateLimit(c *cache.Cache, modes *mode.Controller, limits RateLimits) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil {
			ctx.Next()
			return
		}

		currentMode := modes.Evaluate()
		maxRequests, window := limits.DemoMax, limits.DemoWindow
		if currentMode == models.ModeLive {
			maxRequests, window = limits.LiveMax, limits.LiveWindow
		}

		key := string(currentMode) + ":" + ctx.ClientIP()
		allowed, err := c.RateLimitCheck(ctx.Request.Context(), key, maxRequests, window)
		if err != nil {
			log.Printf("[WARN]  rate limit check failed: %v", err)
			ctx.Next()
			return
		}

		if !allowed {
			ctx.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please slow down.",
			})
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

// Recovery recovers from handler panics and returns a 500 instead of
// crashing the server.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[ERROR] recovered from panic: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "internal_server_error",
					"message": "An unexpected error occurred.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

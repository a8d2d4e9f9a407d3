package api

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/wonny/hedgestress/pkg/config"
	"github.com/wonny/hedgestress/pkg/logger"
	"github.com/wonny/hedgestress/pkg/redis"
)

// Limiter 요청 허용 여부 판단
type Limiter interface {
	Allow(r *http.Request) (bool, error)
}

// localLimiter 프로세스 단위 token bucket
type localLimiter struct {
	limiter *rate.Limiter
}

func (l *localLimiter) Allow(*http.Request) (bool, error) {
	return l.limiter.Allow(), nil
}

// sharedLimiter Redis sliding window (여러 API 인스턴스가 한도 공유)
type sharedLimiter struct {
	rl  *redis.RateLimiter
	cfg redis.RateLimitConfig
}

func (l *sharedLimiter) Allow(r *http.Request) (bool, error) {
	allowed, _, err := l.rl.Allow(r.Context(), l.cfg)
	return allowed, err
}

// NewLimiter Redis 가 켜져 있으면 공유 한도, 아니면 로컬 token bucket
func NewLimiter(cfg config.APIConfig, client *redis.Client) Limiter {
	if client != nil && client.Enabled() {
		return &sharedLimiter{
			rl:  redis.NewRateLimiter(client, "hedgestress"),
			cfg: redis.APIRateLimit("stress", cfg.RateBurst),
		}
	}
	return &localLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)}
}

// rateLimitMiddleware CPU 를 많이 쓰는 라우트 보호 (초과 시 429)
// Redis 오류는 허용 처리 (fail open)
func rateLimitMiddleware(limiter Limiter, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r)
			if err != nil {
				log.WithError(err).Warn("Rate limiter unavailable, allowing request")
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				respondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

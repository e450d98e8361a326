package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/scentlab/perfumery-backend/api/responses"
	"github.com/scentlab/perfumery-backend/pkg/config"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/logger"
)

// CounterStore keeps the fixed-window counters behind AuthRateLimit.
type CounterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy caps attempts per client IP and per submitted username
// inside one window. A zero limit switches that dimension off.
type AuthRateLimitPolicy struct {
	Name        string
	Window      time.Duration
	PerIP       int
	PerUsername int
}

func LoginRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{Name: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerUsername: cfg.LoginUsernameLimit}
}

func RegisterRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{Name: "register", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerUsername: cfg.RegisterUsernameLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerUsername > 0)
}

// scope is "<policy>:<dimension>:<subject>"; usernames are hashed first.
func (p AuthRateLimitPolicy) scope(dimension, subject string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "auth"
	}
	return name + ":" + dimension + ":" + subject
}

type counterCheck struct {
	dimension string
	subject   string
	limit     int
}

// AuthRateLimit throttles credential endpoints before their handlers run.
// The IP counter is checked first so a flood of bodies is never parsed.
func AuthRateLimit(policy AuthRateLimitPolicy, store CounterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			checks := make([]counterCheck, 0, 2)
			if ip := clientIP(r); policy.PerIP > 0 && ip != "" {
				checks = append(checks, counterCheck{dimension: "ip", subject: ip, limit: policy.PerIP})
			}
			if policy.PerUsername > 0 {
				body, err := bufferBody(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				if name := submittedUsername(body); name != "" {
					checks = append(checks, counterCheck{dimension: "username", subject: sha256Hex(name), limit: policy.PerUsername})
				}
			}

			for _, check := range checks {
				key := store.RateLimitKey(policy.scope(check.dimension, check.subject))
				attempts, err := store.IncrWithTTL(ctx, key, policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auth rate limit"))
					return
				}
				if attempts > int64(check.limit) {
					rejectAttempt(ctx, logg, w, policy, check, attempts)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectAttempt(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, check counterCheck, attempts int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    policy.Name,
			"dimension": check.dimension,
			"subject":   check.subject,
			"attempts":  attempts,
			"limit":     check.limit,
		}), "auth attempt rate limited")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP trusts the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// submittedUsername reads the username field of a login or register body,
// lowercased and trimmed. Unparseable bodies yield "".
func submittedUsername(body []byte) string {
	var payload struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Username))
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/shopora-backend/api/responses"
	"github.com/angelmondragon/shopora-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
)

// authBodyLimit caps how much of a login or register body is buffered to find
// the email. Larger bodies are rejected later by the JSON decoder anyway.
const authBodyLimit = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy is a fixed window with independent per-IP and per-email
// budgets. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func LoginRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return NewAuthRateLimitPolicy("login", cfg.LoginWindow, cfg.LoginIPLimit, cfg.LoginEmailLimit)
}

func RegisterRateLimitPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return NewAuthRateLimitPolicy("register", cfg.RegisterWindow, cfg.RegisterIPLimit, cfg.RegisterEmailLimit)
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p AuthRateLimitPolicy) key(scope, subject string) string {
	return "auth:" + p.name + ":" + scope + ":" + subject
}

// budget is one counter a request is charged against.
type budget struct {
	scope   string
	subject string
	limit   int
}

// AuthRateLimit charges each request against the IP budget and, when the body
// names an email, the email budget. Emails are hashed before they reach redis
// or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var budgets []budget
			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				budgets = append(budgets, budget{scope: "ip", subject: ip, limit: policy.ipLimit})
			}
			if policy.emailLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, authBodyLimit))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := emailIn(body); email != "" {
					budgets = append(budgets, budget{scope: "email", subject: hashValue(email), limit: policy.emailLimit})
				}
			}

			for _, b := range budgets {
				count, err := store.IncrWithTTL(ctx, policy.key(b.scope, b.subject), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(b.limit) {
					rejectRateLimited(ctx, logg, w, policy, b, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, b budget, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"scope":          b.scope,
			"subject":        b.subject,
			"attempts":       count,
			"limit":          b.limit,
			"window_seconds": int(policy.window.Seconds()),
		}), "auth rate limit exceeded")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP prefers proxy headers, the API always runs behind a load balancer.
// Values that do not parse as an IP are ignored.
func clientIP(r *http.Request) string {
	candidates := []string{strings.TrimSpace(r.Header.Get("X-Real-IP"))}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		candidates = append(candidates, strings.TrimSpace(first))
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		candidates = append(candidates, host)
	}
	candidates = append(candidates, r.RemoteAddr)

	for _, c := range candidates {
		if ip := net.ParseIP(c); ip != nil {
			return ip.String()
		}
	}
	return ""
}

func emailIn(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

type namespacer interface {
	rateLimiterStore
	RateLimitKey(string) string
}

// rateLimitStore prefixes counter keys with the redis client's namespace.
type rateLimitStore struct{ client namespacer }

// NewRateLimitStore adapts a redis client for AuthRateLimit. A nil client
// yields a nil store, which disables limiting.
func NewRateLimitStore(client namespacer) rateLimiterStore {
	if client == nil {
		return nil
	}
	return rateLimitStore{client: client}
}

func (s rateLimitStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return s.client.IncrWithTTL(ctx, s.client.RateLimitKey(key), ttl)
}

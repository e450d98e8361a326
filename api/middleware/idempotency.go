package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/scentlab/perfumery-backend/api/responses"
	"github.com/scentlab/perfumery-backend/api/validators"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/scentlab/perfumery-backend/pkg/logger"
	pkgredis "github.com/scentlab/perfumery-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayedHeader         = "Idempotent-Replayed"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

type idempotencyRule struct {
	ttl      time.Duration
	required bool
}

// Keyed by "METHOD /path". Only creating endpoints are covered.
var idempotencyRules = map[string]idempotencyRule{
	"POST /api/register":                        {ttl: defaultIdempotencyTTL},
	"POST /api/perfumes":                        {ttl: defaultIdempotencyTTL},
	"POST /api/formulas/request":                {ttl: defaultIdempotencyTTL},
	"POST /api/perfume-stock/maturation":        {ttl: defaultIdempotencyTTL},
	"POST /api/perfume-stock/automation/adjust": {ttl: criticalIdempotencyTTL, required: true},
}

func matchRule(method, path string) (idempotencyRule, bool) {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return idempotencyRule{}, false
	}
	rule, ok := idempotencyRules[method+" "+path]
	return rule, ok
}

// storedResponse is what gets replayed. Body is base64 in JSON.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	BodyHash    string `json:"body_hash"`
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key on a covered route. Keys are scoped per caller, method and
// path. Reusing a key with a different body is a conflict. Without a store
// keys are only checked for presence on routes that require one.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, covered := matchRule(r.Method, r.URL.Path)
			if !covered {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" && rule.required {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, idempotencyHeader+" header required"))
				return
			}
			if clientKey == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := bufferBody(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			bodyHash := digest(body)
			key := store.IdempotencyKey(callerScope(r), clientKey)

			prior, err := lookupResponse(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup"))
				return
			}
			if prior != nil {
				if prior.BodyHash != bodyHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
					return
				}
				prior.replay(w)
				return
			}

			capture := &responseCapture{statusRecorder: statusRecorder{ResponseWriter: w}}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusBadRequest {
				return
			}

			saved := storedResponse{
				Status:      capture.code(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				BodyHash:    bodyHash,
			}
			if err := saveResponse(ctx, store, key, saved, rule.ttl); err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "idempotency_key", clientKey), "idempotency save failed", err)
			}
		})
	}
}

// callerScope is user id (or "anonymous"), method and path.
func callerScope(r *http.Request) string {
	caller := "anonymous"
	if userID, ok := UserIDFromContext(r.Context()); ok {
		caller = strconv.FormatInt(userID, 10)
	}
	return caller + "|" + r.Method + "|" + strings.TrimSuffix(r.URL.Path, "/")
}

func lookupResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, pkgredis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	case raw == "":
		return nil, nil
	}
	var saved storedResponse
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// saveResponse uses SETNX so a concurrent first request keeps its record.
func saveResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string, saved storedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	_, err = store.SetNX(ctx, key, string(payload), ttl)
	return err
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

func digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// responseCapture keeps a copy of the body for replay.
type responseCapture struct {
	statusRecorder
	body bytes.Buffer
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.statusRecorder.Write(b)
}

// bufferBody reads at most validators.MaxBodyBytes and puts the bytes back on
// the request for the next handler.
func bufferBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, validators.MaxBodyBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	if len(body) > validators.MaxBodyBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body too large").
			WithDetails(map[string]string{"body": fmt.Sprintf("must not exceed %d bytes", validators.MaxBodyBytes)})
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/resellr-backend/api/responses"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/resellr-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxIdempotencyKey = 255
)

type idempotencyRule struct {
	method   string
	pattern  string
	critical bool
}

// Paths use "*" for a single dynamic segment.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, pattern: "/api/v1/sell/orders", critical: true},
	{method: http.MethodPost, pattern: "/api/v1/sell/orders/*/cancel", critical: true},
	{method: http.MethodPost, pattern: "/api/v1/agent/orders/*/re-evaluate", critical: true},
	{method: http.MethodPost, pattern: "/api/v1/agent/orders/*/verify-pickup"},
	{method: http.MethodPost, pattern: "/api/admin/v1/sell/orders/*/assign"},
	{method: http.MethodPost, pattern: "/api/admin/v1/sell/orders/*/complete"},
}

func matchIdempotencyRule(method, path string) (idempotencyRule, bool) {
	got := strings.Split(strings.TrimSuffix(path, "/"), "/")
	for _, rule := range idempotencyRules {
		if rule.method == method && segmentsMatch(strings.Split(rule.pattern, "/"), got) {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

func segmentsMatch(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if seg == "*" && got[i] != "" {
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

// idempotencyRecord is stored under the key. A pending record reserves the
// key while the first request is still being handled.
type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (rec idempotencyRecord) encode() string {
	payload, _ := json.Marshal(rec)
	return string(payload)
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the mutating routes listed above. ttl applies to ordinary routes and
// defaults to a day; critical routes keep records for a week. Responses with
// a 5xx status are not recorded so the client can retry under the same key.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := matchIdempotencyRule(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			idemKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case idemKey == "":
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(idemKey) > maxIdempotencyKey:
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			recordTTL := ttl
			if rule.critical {
				recordTTL = criticalIdempotencyTTL
			}
			key := store.IdempotencyKey(idempotencyScope(r), idemKey)
			hash := bodyHash(body)

			reserved, err := store.SetNX(ctx, key, idempotencyRecord{Pending: true, RequestHash: hash}.encode(), recordTTL)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayStored(ctx, store, key, hash, w, fail)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			var captured bytes.Buffer
			ww.Tee(&captured)

			completed := false
			defer func() {
				if !completed {
					release(ctx, store, logg, key)
				}
			}()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}
			completed = true

			final := idempotencyRecord{
				RequestHash: hash,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			}
			if err := store.Set(ctx, key, final.encode(), recordTTL); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replayStored(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string, w http.ResponseWriter, fail func(error)) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		fail(pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}
	if err != nil {
		fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var rec idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &rec); err != nil {
		fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case rec.RequestHash != hash:
		fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case rec.Pending:
		fail(pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
	default:
		if rec.ContentType != "" {
			w.Header().Set("Content-Type", rec.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(rec.Status)
		_, _ = w.Write(rec.Body)
	}
}

// release drops the reservation after a failed or panicking handler. It runs
// even when the request context is already cancelled.
func release(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key string) {
	if err := store.Del(context.WithoutCancel(ctx), key); err != nil && logg != nil {
		logg.Error(ctx, "release idempotency key", err)
	}
}

func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func bodyHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

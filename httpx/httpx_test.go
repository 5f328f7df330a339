package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stackmesh/platform-go/errors"
	"github.com/stackmesh/platform-go/trace"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func hs256Validator(t *testing.T, issuer string) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     testSecret,
		Issuer:        issuer,
	})
	require.NoError(t, err)
	return v
}

func TestValidateTokenHS256(t *testing.T) {
	validator := hs256Validator(t, "platform")
	token := signToken(t, Claims{
		UserID: "user-1",
		Email:  "user@example.com",
		Roles:  []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "platform",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := validator.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{"admin"}, claims.Roles)
}

func TestValidateTokenFailures(t *testing.T) {
	validator := hs256Validator(t, "platform")

	t.Run("missing token", func(t *testing.T) {
		_, err := validator.ValidateToken("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "platform",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})
		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token := signToken(t, Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signToken(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "platform",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := validator.ValidateToken("Bearer not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerAuthMiddleware(t *testing.T) {
	validator := hs256Validator(t, "")
	handler := BearerAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		RespondJSON(w, http.StatusOK, map[string]string{"user": claims.UserID})
	}))

	t.Run("valid token passes", func(t *testing.T) {
		token := signToken(t, Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "user-1")
	})

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDecodeJSON(t *testing.T) {
	type createNodeRequest struct {
		Content string `json:"content" validate:"required"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"hello"}`))
		var dst createNodeRequest
		require.NoError(t, DecodeJSON(req, &dst))
		assert.Equal(t, "hello", dst.Content)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":`))
		var dst createNodeRequest
		err := DecodeJSON(req, &dst)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"x","extra":1}`))
		var dst createNodeRequest
		err := DecodeJSON(req, &dst)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("failed validation tag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":""}`))
		var dst createNodeRequest
		err := DecodeJSON(req, &dst)
		assert.True(t, errors.IsValidation(err))
	})
}

func TestRespondAppError(t *testing.T) {
	logger := zap.NewNop()
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", errors.NewValidation("bad"), http.StatusBadRequest, "validation_failed"},
		{"not found", errors.NewNotFound("gone"), http.StatusNotFound, "not_found"},
		{"conflict", errors.NewConflict("dup"), http.StatusConflict, "conflict"},
		{"unauthorized", errors.NewUnauthorized("nope"), http.StatusUnauthorized, "unauthorized"},
		{"transient", errors.NewTransient("down", nil), http.StatusServiceUnavailable, "temporarily_unavailable"},
		{"internal", errors.NewInternal("boom", nil), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondAppError(rec, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error)
		})
	}
}

func TestRespondAppErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondAppError(rec, zap.NewNop(), errors.NewInternal("secret database path", nil))

	assert.NotContains(t, rec.Body.String(), "secret database path")
}

func TestTraceMiddleware(t *testing.T) {
	handler := Trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"trace": trace.FromContext(r.Context())})
	}))

	t.Run("propagates incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, "incoming-trace")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "incoming-trace", rec.Header().Get(TraceHeader))
		assert.Contains(t, rec.Body.String(), "incoming-trace")
	})

	t.Run("generates when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.NotEmpty(t, rec.Header().Get(TraceHeader))
	})
}

package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credreg/pkg/domain-errors"
)

type revokeBody struct {
	Reason string `json:"reason"`
}

type titledBody struct {
	Title      string `json:"title"`
	normalized bool
}

func (r *titledBody) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.normalized = true
}

func (r *titledBody) Validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

type domainErrBody struct {
	Recipient string `json:"recipient"`
}

func (r *domainErrBody) Validate() error {
	if r.Recipient == "" {
		return dErrors.New(dErrors.CodeBadRequest, "recipient is required")
	}
	return nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestDecodeJSON(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("successful decode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"fraud"}`))
		result, ok := DecodeJSON[revokeBody](httptest.NewRecorder(), req, logger, ctx, "rid")
		require.True(t, ok)
		assert.Equal(t, "fraud", result.Reason)
	})

	t.Run("malformed, empty and unknown-field bodies are rejected", func(t *testing.T) {
		for _, body := range []string{`{invalid`, ``, `{"reason":"x","extra":1}`} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
			result, ok := DecodeJSON[revokeBody](w, req, logger, ctx, "rid")
			assert.False(t, ok, body)
			assert.Nil(t, result)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "bad_request", decodeError(t, w)["error"])
		}
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("normalizes before validating", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"title":"  Rust on Stellar "}`))
		result, ok := DecodeAndPrepare[titledBody](httptest.NewRecorder(), req, logger, ctx, "rid")
		require.True(t, ok)
		assert.True(t, result.normalized)
		assert.Equal(t, "Rust on Stellar", result.Title)
	})

	t.Run("plain validation error maps to validation_error", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"title":"   "}`))
		_, ok := DecodeAndPrepare[titledBody](w, req, logger, ctx, "rid")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "validation_error", resp["error"])
		assert.Equal(t, "title is required", resp["error_description"])
	})

	t.Run("domain validation error keeps its code", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"recipient":""}`))
		_, ok := DecodeAndPrepare[domainErrBody](w, req, logger, ctx, "rid")
		require.False(t, ok)
		assert.Equal(t, "bad_request", decodeError(t, w)["error"])
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{dErrors.New(dErrors.CodeNotFound, "credential not found"), http.StatusNotFound, "not_found"},
		{dErrors.New(dErrors.CodeUnauthorized, "invalid proof"), http.StatusUnauthorized, "unauthenticated"},
		{dErrors.New(dErrors.CodeForbidden, "caller is not the registry admin"), http.StatusForbidden, "unauthorized"},
		{dErrors.New(dErrors.CodeConflict, "admin already set"), http.StatusConflict, "conflict"},
		{errors.New("leaky detail"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteError(w, tt.err)
		assert.Equal(t, tt.wantStatus, w.Code, tt.err.Error())
		resp := decodeError(t, w)
		assert.Equal(t, tt.wantCode, resp["error"])
		assert.NotContains(t, resp["error_description"], "leaky")
	}

	t.Run("internal messages are not exposed", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "pq: relation credentials does not exist"))
		_, has := decodeError(t, w)["error_description"]
		assert.False(t, has)
	})
}

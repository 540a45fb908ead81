package apperr_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bandhanapp/bandhan-server/internal/apperr"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{apperr.Unauthorized("no token"), http.StatusUnauthorized},
		{apperr.Forbidden("not yours"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.DuplicateInterest("again"), http.StatusConflict},
		{apperr.InvalidTransition("decided"), http.StatusConflict},
		{apperr.IncompleteProfile("finish it"), http.StatusBadRequest},
		{apperr.InvalidArgument("bad input"), http.StatusBadRequest},
		{apperr.Internal("boom", errors.New("db down")), http.StatusInternalServerError},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusRequestTimeout},
		{errors.New("mystery"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, apperr.HTTPStatus(tc.err), "err=%v", tc.err)
	}
}

func TestWriteJSONBody(t *testing.T) {
	rec := httptest.NewRecorder()
	apperr.WriteJSON(rec, apperr.DuplicateInterest("interest already expressed"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DUPLICATE_INTEREST", body["error"])
	assert.Equal(t, "interest already expressed", body["message"])
}

func TestWriteJSONUntypedError(t *testing.T) {
	rec := httptest.NewRecorder()
	apperr.WriteJSON(rec, errors.New("sensitive internals"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body["error"])
	// Internal details never leak to the client.
	assert.Equal(t, "internal server error", body["message"])
}

func TestKindOf(t *testing.T) {
	wrapped := apperr.Internal("outer", apperr.Forbidden("inner"))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(wrapped))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("plain")))
	assert.True(t, apperr.IsKind(apperr.NotFound("x"), apperr.KindNotFound))
}

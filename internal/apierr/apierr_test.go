package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b.Error.Code, b.Error.Message
}

func TestWriteClassified(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{Validation("bbox is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{NotFound("point not found"), http.StatusNotFound, "NOT_FOUND"},
		{Upstream(errors.New("dial tcp"), "geocoding provider unavailable"), http.StatusBadGateway, "UPSTREAM"},
		{Config(errors.New("no key"), "geocoding is not configured"), http.StatusInternalServerError, "CONFIG"},
		{fmt.Errorf("wrapped: %w", Internal(errors.New("boom"), "refresh failed")), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		Write(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code)
		code, _ := decode(t, rec)
		assert.Equal(t, tc.code, code)
	}
}

func TestWriteUnclassifiedHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, msg := decode(t, rec)
	assert.Equal(t, "INTERNAL", code)
	assert.Equal(t, "Internal server error", msg)
}


package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func errorHandler(status int, code, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + message + `"}`))
	})
}

func TestReadBodyCanBeRepeated(t *testing.T) {
	rr := DoRequest(errorHandler(http.StatusNotFound, "not_found", "visit not found"), NewRequest(t, http.MethodGet, "/visits/x"))

	first := ReadBody(t, rr)
	second := ReadBody(t, rr)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, second)
}

func TestErrorResponseHelpers(t *testing.T) {
	rr := DoRequest(errorHandler(http.StatusConflict, "conflict", "already blacklisted"), NewRequest(t, http.MethodPost, "/blacklist"))

	errResp := UnmarshalErrorResponse(t, rr)
	assert.Equal(t, "conflict", errResp["error"])
	assert.Equal(t, "already blacklisted", errResp["error_description"])

	AssertErrorCode(t, rr, "conflict")
	AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	AssertJSONContains(t, rr, "error_description", "already blacklisted")
}

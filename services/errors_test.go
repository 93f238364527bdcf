package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	req := require.New(t)

	wrapped := fmt.Errorf("while matching: %w", newError(CodeDuplicateMatch, "A match with this user already exists"))
	req.Equal(CodeDuplicateMatch, CodeOf(wrapped))
	req.ErrorIs(wrapped, ErrDuplicateMatch)
	req.NotErrorIs(wrapped, ErrDuplicateRequest)

	req.Equal(CodeInternal, CodeOf(errors.New("boom")))
	req.Equal("A match with this user already exists", MessageOf(wrapped))
	req.NotContains(MessageOf(wrapError(CodeInternal, "failed to query", errors.New("secret table"))), "secret")
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeInvalidGenderState:       http.StatusUnprocessableEntity,
		CodeDuplicateMatch:           http.StatusConflict,
		CodeDuplicateRequest:         http.StatusConflict,
		CodeAlreadyResolved:          http.StatusConflict,
		CodeGenderInvariantViolation: http.StatusServiceUnavailable,
		CodeUnauthorized:             http.StatusForbidden,
		CodeNotFound:                 http.StatusNotFound,
		CodeValidation:               http.StatusBadRequest,
		CodeInternal:                 http.StatusInternalServerError,
	}
	for code, status := range tests {
		require.Equal(t, status, code.HTTPStatus(), string(code))
	}
}

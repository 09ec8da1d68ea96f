package main

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"rollcall/internal/attendance"
	"rollcall/internal/lecture"
	"rollcall/internal/token"
)

func TestMarkErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{token.ErrExpired, http.StatusBadRequest},
		{attendance.ErrNotLectureToken, http.StatusBadRequest},
		{lecture.ErrNotFound, http.StatusNotFound},
		{attendance.ErrDuplicateMark, http.StatusConflict},
		{token.ErrSignatureInvalid, http.StatusBadRequest},
		{token.ErrMalformed, http.StatusBadRequest},
	}
	for _, tc := range cases {
		status, _ := markError(tc.err)
		assert.Equal(t, tc.status, status, "err %v", tc.err)
	}
}

func TestMarkErrorUnknownIsServerFault(t *testing.T) {
	status, msg := markError(errors.New("connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, msg, "token")
}

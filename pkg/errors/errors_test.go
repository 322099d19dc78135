package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	syntax := fmt.Errorf("parsing: %w", &QuerySyntaxError{Query: "(a", Pos: 2, Reason: "missing )"})
	assert.True(t, errors.Is(syntax, ErrQuerySyntax))
	assert.False(t, errors.Is(syntax, ErrIndexIO))

	ioErr := NewIndexIOError("open", "/data/songs", io.ErrUnexpectedEOF)
	assert.True(t, errors.Is(ioErr, ErrIndexIO))
	assert.True(t, errors.Is(ioErr, io.ErrUnexpectedEOF))
	assert.Contains(t, ioErr.Error(), "/data/songs")

	malformed := &MalformedRecordError{Kind: "album", Index: 3, Reason: "missing album name"}
	assert.True(t, errors.Is(malformed, ErrMalformedRecord))
	assert.Equal(t, "malformed album record #3: missing album name", malformed.Error())
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&QuerySyntaxError{Reason: "x"}, http.StatusBadRequest},
		{ErrUnknownField, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", ErrDocumentNotFound), http.StatusNotFound},
		{ErrLyricsNotFound, http.StatusNotFound},
		{NewIndexIOError("read", "", io.EOF), http.StatusServiceUnavailable},
		{New(ErrInvalidInput, http.StatusTeapot, "custom"), http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), tt.err.Error())
	}
}

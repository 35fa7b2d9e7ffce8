package database

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"wrapped reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"eof", io.EOF, true},
		{"unexpected eof", fmt.Errorf("read packet: %w", io.ErrUnexpectedEOF), true},
		{"scan", errors.New("converting NULL to string is unsupported"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}

func TestPingError(t *testing.T) {
	tests := []struct {
		kind errs.ErrKind
		want errs.ErrKind
	}{
		{errs.ErrKindQueryFailed, errs.ErrKindConnectionFailed},
		{errs.ErrKindUnknown, errs.ErrKindConnectionFailed},
		{errs.ErrKindPermissionDenied, errs.ErrKindPermissionDenied},
		{errs.ErrKindTimeout, errs.ErrKindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got := PingError(errs.Wrap(tt.kind, "ping failed", errors.New("boom")))
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrKindUnsupportedScheme, `unsupported scheme "oracle"`),
			want: `[unsupported_scheme] unsupported scheme "oracle"`,
		},
		{
			name: "with cause",
			err:  Wrap(ErrKindQueryFailed, "list tables", errors.New("permission denied for schema app")),
			want: "[query_failed] list tables: permission denied for schema app",
		},
		{
			name: "formatted",
			err:  Newf(ErrKindInconsistentCatalog, "constraint %s.%s has %d rows", "public", "fk_1", 0),
			want: "[inconsistent_catalog] constraint public.fk_1 has 0 rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPredicates_TraverseWrapping(t *testing.T) {
	base := Wrap(ErrKindTimeout, "load columns", context.Canceled)
	wrapped := fmt.Errorf("read schema: %w", base)

	assert.True(t, IsTimeout(wrapped))
	assert.False(t, IsQueryFailed(wrapped))
	assert.True(t, errors.Is(wrapped, context.Canceled))
	assert.Equal(t, ErrKindTimeout, KindOf(wrapped))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		kind ErrKind
		pred func(error) bool
	}{
		{ErrKindNotFound, IsNotFound},
		{ErrKindConnectionFailed, IsConnectionFailed},
		{ErrKindQueryFailed, IsQueryFailed},
		{ErrKindInvalidInput, IsInvalidInput},
		{ErrKindPermissionDenied, IsPermissionDenied},
		{ErrKindUnsupportedScheme, IsUnsupportedScheme},
		{ErrKindNotImplemented, IsNotImplemented},
		{ErrKindInconsistentCatalog, IsInconsistentCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.True(t, tt.pred(New(tt.kind, "x")))
			assert.False(t, tt.pred(New(ErrKindUnknown, "x")))
		})
	}
}

func TestQueryOf(t *testing.T) {
	inner := Wrap(ErrKindQueryFailed, "query failed", errors.New("syntax error")).WithQuery("SELECT 1")
	outer := Wrap(ErrKindQueryFailed, "list tables", inner)

	assert.Equal(t, "SELECT 1", QueryOf(outer))
	assert.Equal(t, "", QueryOf(errors.New("plain")))
}

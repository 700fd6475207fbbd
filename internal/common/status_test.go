package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{NewAppError("DOC_GET", "abc", ErrNotFound), codes.NotFound},
		{fmt.Errorf("wrap: %w", ErrValidation), codes.InvalidArgument},
		{ErrUnsupportedInput, codes.InvalidArgument},
		{ErrRateLimited, codes.ResourceExhausted},
		{ErrUnauthorized, codes.Unauthenticated},
		{NewAppError("DB_PING", "sqlite", ErrDatabase), codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
		{InvalidArgumentError("bad"), codes.InvalidArgument},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, status.Code(ToStatus(tc.err)), tc.err.Error())
	}
	assert.NoError(t, ToStatus(nil))
	assert.Equal(t, codes.NotFound, status.Code(NotFoundError("x")))
	assert.Equal(t, codes.Internal, status.Code(InternalError("x")))
}

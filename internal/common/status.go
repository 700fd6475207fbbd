package common

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func InvalidArgumentError(msg string) error { return status.Error(codes.InvalidArgument, msg) }

func NotFoundError(msg string) error { return status.Error(codes.NotFound, msg) }

func InternalError(msg string) error { return status.Error(codes.Internal, msg) }

// ToStatus maps err onto a gRPC status using the sentinel errors. Errors
// that already carry a status pass through.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupportedInput):
		code = codes.InvalidArgument
	case errors.Is(err, ErrUnauthorized):
		code = codes.Unauthenticated
	case errors.Is(err, ErrRateLimited):
		code = codes.ResourceExhausted
	case errors.Is(err, ErrInsufficientText):
		code = codes.FailedPrecondition
	case errors.Is(err, ErrDatabase):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

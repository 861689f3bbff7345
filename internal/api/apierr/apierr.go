// Package apierr maps domain errors onto gRPC codes and HTTP responses.
package apierr

import (
	"context"
	"errors"
	"net/http"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const internalMessage = "internal error"

// Kind is a stable, machine readable error identifier.
func Kind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInterval):
		return "INVALID_INTERVAL"
	case errors.Is(err, domain.ErrPastStart):
		return "PAST_START"
	case errors.Is(err, domain.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, domain.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, domain.ErrInactiveResource):
		return "INACTIVE_RESOURCE"
	case errors.Is(err, domain.ErrSlotUnavailable):
		return "SLOT_UNAVAILABLE"
	case errors.Is(err, domain.ErrNotAuthorized):
		return "NOT_AUTHORIZED"
	case errors.Is(err, domain.ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, context.DeadlineExceeded):
		return "DEADLINE_EXCEEDED"
	case errors.Is(err, context.Canceled):
		return "CANCELLED"
	}
	return "INTERNAL"
}

func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrPastStart),
		errors.Is(err, domain.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInactiveResource):
		return codes.NotFound
	case errors.Is(err, domain.ErrSlotUnavailable):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrNotAuthorized):
		return codes.PermissionDenied
	case errors.Is(err, domain.ErrInvalidState):
		return codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Internal
}

// HTTPStatus follows the gateway's code table, except that an illegal state
// transition is a 409 rather than a 400.
func HTTPStatus(err error) int {
	if errors.Is(err, domain.ErrInvalidState) {
		return http.StatusConflict
	}
	return runtime.HTTPStatusFromCode(Code(err))
}

// Message hides storage and unknown error details from clients.
func Message(err error) string {
	if Code(err) == codes.Internal {
		return internalMessage
	}
	return err.Error()
}

// Body is the JSON error document returned by the HTTP API.
func Body(err error) map[string]any {
	body := map[string]any{
		"error": Message(err),
		"code":  Kind(err),
	}
	if ids := domain.ConflictingBookingIDs(err); ids != nil {
		body["conflicting_booking_ids"] = idStrings(ids)
	}
	return body
}

// GRPC converts err to a status error. Conflicts carry the offending booking
// ids as a google.protobuf.Struct detail.
func GRPC(err error) error {
	if err == nil {
		return nil
	}
	st := status.New(Code(err), Message(err))

	if ids := domain.ConflictingBookingIDs(err); ids != nil {
		values := make([]any, len(ids))
		for i, id := range idStrings(ids) {
			values[i] = id
		}
		detail, derr := structpb.NewStruct(map[string]any{
			"code":                    Kind(err),
			"conflicting_booking_ids": values,
		})
		if derr == nil {
			if withDetails, werr := st.WithDetails(detail); werr == nil {
				st = withDetails
			}
		}
	}
	return st.Err()
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

package bookings_service_api

import (
	"context"
	"fmt"

	"github.com/dparkr/dparkr/internal/api/rpc"
	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/service/booking"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "dparkr.bookings.v1.BookingsService"

// BookingsServiceServer is the server API for the bookings service. Messages
// are google.protobuf.Struct documents.
type BookingsServiceServer interface {
	CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateBookingStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// Server implements BookingsServiceServer on top of the booking use case.
type Server struct {
	bookings booking.BookingUseCase
}

func NewServer(bookings booking.BookingUseCase) *Server {
	return &Server{bookings: bookings}
}

func Register(registrar grpc.ServiceRegistrar, srv BookingsServiceServer) {
	registrar.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateBooking",
			Handler: rpc.Handler("/"+ServiceName+"/CreateBooking", func(s BookingsServiceServer) rpc.UnaryFunc {
				return s.CreateBooking
			}),
		},
		{
			MethodName: "UpdateBookingStatus",
			Handler: rpc.Handler("/"+ServiceName+"/UpdateBookingStatus", func(s BookingsServiceServer) rpc.UnaryFunc {
				return s.UpdateBookingStatus
			}),
		},
		{
			MethodName: "CheckAvailability",
			Handler: rpc.Handler("/"+ServiceName+"/CheckAvailability", func(s BookingsServiceServer) rpc.UnaryFunc {
				return s.CheckAvailability
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dparkr/bookings/v1/bookings.proto",
}

// CreateBooking expects {parking_id, start_time, end_time, user_id?}. The
// booking always belongs to the caller; a user_id naming anyone else is rejected.
func (s *Server) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	parkingID, err := rpc.UUID(req, "parking_id")
	if err != nil {
		return nil, err
	}
	start, err := rpc.Time(req, "start_time")
	if err != nil {
		return nil, err
	}
	end, err := rpc.Time(req, "end_time")
	if err != nil {
		return nil, err
	}
	actorID := rpc.Actor(ctx)
	if userID := rpc.String(req, "user_id"); userID != "" && userID != actorID {
		return nil, fmt.Errorf("%w: bookings are created for the caller only", domain.ErrNotAuthorized)
	}

	created, err := s.bookings.CreateBooking(ctx, booking.CreateBookingInput{
		UserID:    actorID,
		ParkingID: parkingID,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return nil, err
	}
	return toStructBooking(created, "")
}

// UpdateBookingStatus expects {booking_id, action}.
func (s *Server) UpdateBookingStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	bookingID, err := rpc.UUID(req, "booking_id")
	if err != nil {
		return nil, err
	}
	action, err := domain.ParseAction(rpc.String(req, "action"))
	if err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, rpc.Actor(ctx), action)
	if err != nil {
		return nil, err
	}
	return toStructBooking(&updated.Booking, updated.OwnerID)
}

// CheckAvailability expects {parking_id, start_time, end_time}.
func (s *Server) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	parkingID, err := rpc.UUID(req, "parking_id")
	if err != nil {
		return nil, err
	}
	start, err := rpc.Time(req, "start_time")
	if err != nil {
		return nil, err
	}
	end, err := rpc.Time(req, "end_time")
	if err != nil {
		return nil, err
	}

	availability, err := s.bookings.CheckAvailability(ctx, parkingID, start, end)
	if err != nil {
		return nil, err
	}

	ids := make([]any, len(availability.ConflictingBookingIDs))
	for i, id := range availability.ConflictingBookingIDs {
		ids[i] = id.String()
	}
	return structpb.NewStruct(map[string]any{
		"available":               availability.Available,
		"conflicting_booking_ids": ids,
	})
}

func toStructBooking(b *domain.Booking, ownerID string) (*structpb.Struct, error) {
	fields := map[string]any{
		"id":                b.ID.String(),
		"user_id":           b.UserID,
		"parking_id":        b.ParkingID.String(),
		"start_time":        rpc.FormatTime(b.StartTime),
		"end_time":          rpc.FormatTime(b.EndTime),
		"total_price_cents": b.TotalPriceCents,
		"status":            string(b.Status),
	}
	if ownerID != "" {
		fields["owner_id"] = ownerID
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode booking: %w", err)
	}
	return out, nil
}

var _ BookingsServiceServer = (*Server)(nil)

package bookings_service_api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dparkr/dparkr/internal/api/rpc"
	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/service/booking"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) UpdateStatus(ctx context.Context, bookingID uuid.UUID, actorID string, action domain.Action) (*domain.OwnedBooking, error) {
	args := m.Called(ctx, bookingID, actorID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OwnedBooking), args.Error(1)
}

func (m *MockBookingUseCase) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, actorID string) (*domain.OwnedBooking, error) {
	return m.UpdateStatus(ctx, bookingID, actorID, domain.ActionConfirm)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, bookingID uuid.UUID, actorID string) (*domain.OwnedBooking, error) {
	return m.UpdateStatus(ctx, bookingID, actorID, domain.ActionCancel)
}

func (m *MockBookingUseCase) CheckAvailability(ctx context.Context, parkingID uuid.UUID, start, end time.Time) (*booking.Availability, error) {
	args := m.Called(ctx, parkingID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Availability), args.Error(1)
}

func (m *MockBookingUseCase) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListOwnerBookings(ctx context.Context, ownerID string) ([]domain.OwnedBooking, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.OwnedBooking), args.Error(1)
}

func (m *MockBookingUseCase) ExpireStalePending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func dial(t *testing.T, uc booking.BookingUseCase) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryErrorInterceptor(zap.NewNop())))
	Register(server, NewServer(uc))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func asActor(actor string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), rpc.ActorMetadataKey, actor)
}

func TestServer_CreateBooking(t *testing.T) {
	uc := &MockBookingUseCase{}
	conn := dial(t, uc)

	parkingID := uuid.New()
	start := time.Date(2030, 3, 14, 10, 0, 0, 0, time.UTC)
	created := &domain.Booking{
		ID:              uuid.New(),
		UserID:          "driver-1",
		ParkingID:       parkingID,
		StartTime:       start,
		EndTime:         start.Add(2 * time.Hour),
		TotalPriceCents: 400,
		Status:          domain.BookingStatusPending,
	}
	uc.On("CreateBooking", mock.Anything, booking.CreateBookingInput{
		UserID: "driver-1", ParkingID: parkingID, StartTime: start, EndTime: start.Add(2 * time.Hour),
	}).Return(created, nil).Once()

	req, err := structpb.NewStruct(map[string]any{
		"parking_id": parkingID.String(),
		"start_time": "2030-03-14T10:00:00Z",
		"end_time":   "2030-03-14T12:00:00Z",
	})
	require.NoError(t, err)
	resp := new(structpb.Struct)

	err = conn.Invoke(asActor("driver-1"), "/"+ServiceName+"/CreateBooking", req, resp)

	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), resp.Fields["id"].GetStringValue())
	assert.Equal(t, "PENDING", resp.Fields["status"].GetStringValue())
	assert.Equal(t, float64(400), resp.Fields["total_price_cents"].GetNumberValue())
	uc.AssertExpectations(t)
}

func TestServer_CreateBooking_Conflict(t *testing.T) {
	uc := &MockBookingUseCase{}
	conn := dial(t, uc)

	conflictID := uuid.New()
	uc.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, &domain.SlotUnavailableError{BookingIDs: []uuid.UUID{conflictID}}).Once()

	req, err := structpb.NewStruct(map[string]any{
		"parking_id": uuid.NewString(),
		"start_time": "2030-03-14T10:00:00Z",
		"end_time":   "2030-03-14T12:00:00Z",
	})
	require.NoError(t, err)

	err = conn.Invoke(asActor("driver-1"), "/"+ServiceName+"/CreateBooking", req, new(structpb.Struct))

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.AlreadyExists, st.Code())
	assert.Contains(t, st.Message(), conflictID.String())
}

func TestServer_CreateBooking_BadRequest(t *testing.T) {
	uc := &MockBookingUseCase{}
	conn := dial(t, uc)

	req, err := structpb.NewStruct(map[string]any{"parking_id": "not-a-uuid"})
	require.NoError(t, err)

	err = conn.Invoke(asActor("driver-1"), "/"+ServiceName+"/CreateBooking", req, new(structpb.Struct))

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	uc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestServer_CreateBooking_ForeignUser(t *testing.T) {
	uc := &MockBookingUseCase{}
	conn := dial(t, uc)

	req, err := structpb.NewStruct(map[string]any{
		"user_id":    "driver-2",
		"parking_id": uuid.NewString(),
		"start_time": "2030-03-14T10:00:00Z",
		"end_time":   "2030-03-14T12:00:00Z",
	})
	require.NoError(t, err)

	err = conn.Invoke(asActor("driver-1"), "/"+ServiceName+"/CreateBooking", req, new(structpb.Struct))

	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	uc.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestServer_UpdateBookingStatus(t *testing.T) {
	uc := &MockBookingUseCase{}
	conn := dial(t, uc)

	id := uuid.New()
	updated := &domain.OwnedBooking{
		Booking: domain.Booking{ID: id, UserID: "driver-1", ParkingID: uuid.New(), Status: domain.BookingStatusConfirmed},
		OwnerID: "owner-1",
	}
	uc.On("UpdateStatus", mock.Anything, id, "owner-1", domain.ActionConfirm).Return(updated, nil).Once()
	uc.On("UpdateStatus", mock.Anything, id, "driver-1", domain.ActionConfirm).Return(nil, domain.ErrNotAuthorized).Once()

	req, err := structpb.NewStruct(map[string]any{"booking_id": id.String(), "action": "CONFIRM"})
	require.NoError(t, err)

	resp := new(structpb.Struct)
	require.NoError(t, conn.Invoke(asActor("owner-1"), "/"+ServiceName+"/UpdateBookingStatus", req, resp))
	assert.Equal(t, "CONFIRMED", resp.Fields["status"].GetStringValue())
	assert.Equal(t, "owner-1", resp.Fields["owner_id"].GetStringValue())

	err = conn.Invoke(asActor("driver-1"), "/"+ServiceName+"/UpdateBookingStatus", req, new(structpb.Struct))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	bad, err := structpb.NewStruct(map[string]any{"booking_id": id.String(), "action": "REFUND"})
	require.NoError(t, err)
	err = conn.Invoke(asActor("owner-1"), "/"+ServiceName+"/UpdateBookingStatus", bad, new(structpb.Struct))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestServer_CheckAvailability(t *testing.T) {
	uc := &MockBookingUseCase{}
	conn := dial(t, uc)

	parkingID := uuid.New()
	conflictID := uuid.New()
	start := time.Date(2030, 3, 14, 10, 0, 0, 0, time.UTC)
	uc.On("CheckAvailability", mock.Anything, parkingID, start, start.Add(time.Hour)).
		Return(&booking.Availability{ConflictingBookingIDs: []uuid.UUID{conflictID}}, nil).Once()

	req, err := structpb.NewStruct(map[string]any{
		"parking_id": parkingID.String(),
		"start_time": "2030-03-14T10:00:00Z",
		"end_time":   "2030-03-14T11:00:00Z",
	})
	require.NoError(t, err)
	resp := new(structpb.Struct)

	require.NoError(t, conn.Invoke(context.Background(), "/"+ServiceName+"/CheckAvailability", req, resp))

	assert.False(t, resp.Fields["available"].GetBoolValue())
	ids := resp.Fields["conflicting_booking_ids"].GetListValue().GetValues()
	require.Len(t, ids, 1)
	assert.Equal(t, conflictID.String(), ids[0].GetStringValue())
}

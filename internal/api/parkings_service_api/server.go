package parkings_service_api

import (
	"context"
	"fmt"

	"github.com/dparkr/dparkr/internal/api/rpc"
	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/service/parkings"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "dparkr.parkings.v1.ParkingsService"

type ParkingsServiceServer interface {
	ListParkings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	NearestParkings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// Server exposes the driver-facing parking search over gRPC.
type Server struct {
	parkings parkings.ParkingUseCase
}

func NewServer(parkings parkings.ParkingUseCase) *Server {
	return &Server{parkings: parkings}
}

func Register(registrar grpc.ServiceRegistrar, srv ParkingsServiceServer) {
	registrar.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ParkingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListParkings",
			Handler: rpc.Handler("/"+ServiceName+"/ListParkings", func(s ParkingsServiceServer) rpc.UnaryFunc {
				return s.ListParkings
			}),
		},
		{
			MethodName: "NearestParkings",
			Handler: rpc.Handler("/"+ServiceName+"/NearestParkings", func(s ParkingsServiceServer) rpc.UnaryFunc {
				return s.NearestParkings
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dparkr/parkings/v1/parkings.proto",
}

func (s *Server) ListParkings(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.parkings.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(list))
	for i := range list {
		items = append(items, parkingFields(&list[i]))
	}
	return encode(items)
}

// NearestParkings expects {lat, lng, limit?}.
func (s *Server) NearestParkings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	lat, okLat := rpc.Number(req, "lat")
	lng, okLng := rpc.Number(req, "lng")
	if !okLat || !okLng {
		return nil, fmt.Errorf("%w: lat and lng are required", domain.ErrInvalidInput)
	}
	limit, _ := rpc.Number(req, "limit")

	nearest, err := s.parkings.Nearest(ctx, lat, lng, int(limit))
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(nearest))
	for i := range nearest {
		fields := parkingFields(&nearest[i].ParkingSpace)
		fields["distance_km"] = nearest[i].DistanceKm
		items = append(items, fields)
	}
	return encode(items)
}

func parkingFields(p *domain.ParkingSpace) map[string]any {
	return map[string]any{
		"id":                   p.ID.String(),
		"owner_id":             p.OwnerID,
		"title":                p.Title,
		"description":          p.Description,
		"price_per_hour_cents": p.PricePerHourCents,
		"latitude":             p.Latitude,
		"longitude":            p.Longitude,
		"address":              p.Address,
		"is_active":            p.IsActive,
	}
}

func encode(items []any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]any{"parkings": items})
	if err != nil {
		return nil, fmt.Errorf("encode parkings: %w", err)
	}
	return out, nil
}

var _ ParkingsServiceServer = (*Server)(nil)

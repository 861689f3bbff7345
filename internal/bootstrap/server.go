package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dparkr/dparkr/api"
	"github.com/dparkr/dparkr/config"
	bookingsapi "github.com/dparkr/dparkr/internal/api/bookings_service_api"
	parkingsapi "github.com/dparkr/dparkr/internal/api/parkings_service_api"
	"github.com/dparkr/dparkr/internal/api/rpc"
	"github.com/dparkr/dparkr/internal/service/booking"
	"github.com/dparkr/dparkr/internal/service/parkings"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const swaggerDocFile = "dparkr.swagger.json"

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Bookings     booking.BookingUseCase
	Parkings     parkings.ParkingUseCase
	HealthChecks map[string]HealthCheck
}

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
}

// Run starts the gRPC and HTTP servers and blocks until ctx is cancelled or a
// server fails. Both servers are drained on the way out.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger, svc Services) error {
	s := newServers(cfg, log, svc)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("grpc server listening", zap.String("address", cfg.GRPC.Address))
		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newServers(cfg *config.Config, log *zap.Logger, svc Services) *Servers {
	return &Servers{
		grpcServer: NewGRPCServer(log, svc),
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           NewRouter(log, svc, cfg.HTTP.SwaggerDir),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func NewGRPCServer(log *zap.Logger, svc Services) *grpc.Server {
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(rpc.UnaryErrorInterceptor(log.With(zap.String("transport", "grpc")))))
	bookingsapi.Register(grpcSrv, bookingsapi.NewServer(svc.Bookings))
	parkingsapi.Register(grpcSrv, parkingsapi.NewServer(svc.Parkings))
	return grpcSrv
}

// NewRouter builds the gin engine serving the REST API, health and API docs.
func NewRouter(log *zap.Logger, svc Services, swaggerDir string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(log.With(zap.String("transport", "http"))))

	router.GET("/health", healthHandler(svc.HealthChecks))

	api.NewBookingHandler(svc.Bookings).Register(&router.RouterGroup)
	api.NewParkingHandler(svc.Parkings).Register(&router.RouterGroup)

	if swaggerDir != "" {
		router.StaticFile("/swagger/"+swaggerDocFile, filepath.Join(swaggerDir, swaggerDocFile))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/"+swaggerDocFile))))
	}
	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}

// Package health exposes the poll store's readiness over the standard gRPC
// health protocol.
package health

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"commodash/internal/poll"
)

// Service is the health service name reported alongside the server-wide
// ("") status.
const Service = "commodash.Poll"

// Server maps poll state to health status: SERVING once Ready, NOT_SERVING
// while Loading or after Stop.
type Server struct {
	hs   *health.Server
	poll *poll.Store
	log  *slog.Logger
}

// NewServer creates a health server tracking p.
func NewServer(p *poll.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{hs: health.NewServer(), poll: p, log: log}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// RegisterGRPC registers the health service on gs.
func (s *Server) RegisterGRPC(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, s.hs)
}

// Check answers a health query directly, without a network round trip.
func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Run follows poll updates until ctx is done or the store stops, then
// reports NOT_SERVING.
func (s *Server) Run(ctx context.Context) {
	id, updates := s.poll.Subscribe(4)
	defer s.hs.Shutdown()

	if s.poll.State() == poll.Ready {
		s.set(healthpb.HealthCheckResponse_SERVING)
	}
	for {
		select {
		case <-ctx.Done():
			s.poll.Unsubscribe(id)
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.State == poll.Ready {
				s.set(healthpb.HealthCheckResponse_SERVING)
			}
		}
	}
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.hs.SetServingStatus("", status)
	s.hs.SetServingStatus(Service, status)
	s.log.Debug("health status", "status", status.String())
}

package health

import (
	"context"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"commodash/internal/domain"
	"commodash/internal/poll"
)

type stubSource struct{}

func (stubSource) ListCommodities(context.Context) ([]domain.Commodity, error) {
	return []domain.Commodity{{Symbol: "XAU"}}, nil
}

func (stubSource) MarketSummary(context.Context) (*domain.MarketSummary, error) {
	return &domain.MarketSummary{}, nil
}

func waitStatus(t *testing.T, s *Server, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := s.Check(context.Background(), Service)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("status = %v, want %v", got, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHealthFollowsPoll(t *testing.T) {
	p := poll.New(stubSource{}, time.Hour)
	s := NewServer(p, nil)

	if got, _ := s.Check(context.Background(), ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("initial status = %v, want NOT_SERVING", got)
	}

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Refresh()
	waitStatus(t, s, healthpb.HealthCheckResponse_SERVING)

	p.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after poll Stop")
	}
	waitStatus(t, s, healthpb.HealthCheckResponse_NOT_SERVING)
}

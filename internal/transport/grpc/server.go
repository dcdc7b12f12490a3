package grpcx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service reported for the bot itself. The empty
// name reports the process as a whole.
const ServiceName = "tempvoice.Bot"

// Server exposes grpc.health.v1 and reflection. The bot flips the status when
// the gateway session comes up or drops.
type Server struct {
	addr   string
	gs     *grpc.Server
	health *health.Server
	log    *slog.Logger
	ln     net.Listener
}

func New(addr string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "grpc")

	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(log, 10*time.Second)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(log)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{addr: addr, gs: gs, health: hs, log: log}
	s.SetServing(false)
	return s
}

func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Listen binds the address so that Addr is known before Serve.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Serve blocks until ctx is done, then stops gracefully within 10s and
// releases the listener.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("grpc listening", "addr", s.Addr())
		errCh <- s.gs.Serve(s.ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		s.log.Error("grpc graceful stop timeout; forcing stop")
		s.gs.Stop()
	}
	// Serve may not have started before the stop; the listener is ours then
	<-errCh
	_ = s.ln.Close()
	s.log.Info("grpc stopped")
	return nil
}

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/model/encoding"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/component"
	"github.com/witnessnet/witnessnet/module/irrecoverable"
	"github.com/witnessnet/witnessnet/module/util"
)

const (
	// MaxRequestSize is the largest query envelope accepted.
	MaxRequestSize = 8 << 20

	defaultShutdownTimeout = 5 * time.Second
)

// ServerConfig configures the HTTP side of a bridge.
type ServerConfig struct {
	ListenAddress   string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server exposes a node over HTTP. Queries are posted to the address of the target module, and
// discovery is a GET on the same path. The root path addresses the node itself.
type Server struct {
	*component.ComponentManager
	log    zerolog.Logger
	root   module.Module
	config ServerConfig
	server *http.Server

	mu   sync.RWMutex
	addr net.Addr
}

func NewServer(log zerolog.Logger, root module.Module, config ServerConfig) *Server {
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		log:    log.With().Str("component", "bridge_server").Logger(),
		root:   root,
		config: config,
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
			http.MethodHead},
	})

	s.server = &http.Server{
		Handler:      c.Handler(s.Router()),
		WriteTimeout: config.WriteTimeout,
		ReadTimeout:  config.ReadTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	s.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(s.serve).
		Build()

	return s
}

// Router returns the routes of the bridge without the server around them.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(LoggingMiddleware(s.log))

	router.HandleFunc("/", s.handle(s.discover)).Methods(http.MethodGet).Name("discoverRoot")
	router.HandleFunc("/{address}", s.handle(s.discover)).Methods(http.MethodGet).Name("discover")
	router.HandleFunc("/{address}", s.handle(s.query)).Methods(http.MethodPost).Name("query")
	return router
}

// Address returns the address the server listens on, once it is ready.
func (s *Server) Address() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	l, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		ctx.Throw(fmt.Errorf("could not listen on %s: %w", s.config.ListenAddress, err))
	}

	s.mu.Lock()
	s.addr = l.Addr()
	s.mu.Unlock()

	s.log.Info().Str("address", l.Addr().String()).Msg("bridge server started")
	ready()

	served := make(chan error, 1)
	go func() {
		served <- s.server.Serve(l)
	}()

	select {
	case err := <-served:
		// Serve only returns before shutdown on a listener failure
		ctx.Throw(fmt.Errorf("bridge server failed: %w", err))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("bridge server did not shut down gracefully")
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Err(err).Msg("error shutting down bridge server")
	}
}

type apiHandler func(ctx context.Context, target module.Module, req *http.Request) ([]byte, error)

// handle resolves the target module and writes the response or the error of the handler.
// Requests in flight are cancelled when the server shuts down.
func (s *Server) handle(f apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := util.WithDone(req.Context(), s.ShutdownSignal())
		defer cancel()

		target, err := s.target(ctx, mux.Vars(req)["address"])
		if err != nil {
			s.errorResponse(w, req, err)
			return
		}

		body, err := f(ctx, target, req)
		if err != nil {
			s.errorResponse(w, req, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			s.log.Debug().Err(err).Msg("failed to write response")
		}
	}
}

// target finds the module a request is addressed to among the modules the root exposes.
func (s *Server) target(ctx context.Context, ref string) (module.Module, error) {
	if ref == "" || ref == s.root.Address().Hex() {
		return s.root, nil
	}

	found, err := s.root.Resolve(ctx, module.ByAddressOrName(ref), module.DirectionDown)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, NewNotFoundError(fmt.Sprintf("module %s not found", ref), ErrModuleNotFound)
	}
	return found[0], nil
}

func (s *Server) discover(ctx context.Context, target module.Module, _ *http.Request) ([]byte, error) {
	payloads, err := target.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if payloads == nil {
		payloads = []payload.Payload{}
	}
	return encoding.DefaultEncoder.Encode(payloads)
}

func (s *Server) query(ctx context.Context, target module.Module, req *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(nil, req.Body, MaxRequestSize))
	if err != nil {
		return nil, NewBadRequestError(fmt.Errorf("could not read request body: %w", err))
	}

	bw, payloads, err := decodeEnvelope(data)
	if err != nil {
		return nil, NewBadRequestError(err)
	}

	result, results, err := target.Query(ctx, bw, payloads)
	if err != nil {
		return nil, err
	}
	return encodeEnvelope(result, results)
}

func (s *Server) errorResponse(w http.ResponseWriter, req *http.Request, err error) {
	se := statusFromModuleError(err)
	if se.Status() >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", RequestID(req.Context())).Msg("internal error")
	}

	body, encErr := encoding.DefaultEncoder.Encode(errorResponse{Kind: se.Kind(), Message: se.UserMessage()})
	if encErr != nil {
		s.log.Error().Err(encErr).Msg("failed to encode error response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(se.Status())
	_, _ = w.Write(body)
}

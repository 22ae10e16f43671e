// file: internal/mcp/server/server.go

// Package server answers MCP requests against a tool registry and a memory store, over
// stdio or HTTP.
package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/mcperrors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/mcp/router"
	"github.com/dkoosis/toolwire/internal/memory"
	"github.com/dkoosis/toolwire/internal/metrics"
	"github.com/dkoosis/toolwire/internal/middleware"
	"github.com/dkoosis/toolwire/internal/tools"
	"github.com/dkoosis/toolwire/internal/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "toolwire/server"

// Options configures a Server.
type Options struct {
	Name           string
	Version        string
	Instructions   string
	RequestTimeout time.Duration
	Logger         logging.Logger
	Metrics        *metrics.Collector
}

// OptionsFromConfig builds Options from the server section of the config file. version
// is used when the file does not set one.
func OptionsFromConfig(cfg config.ServerConfig, version string) Options {
	if cfg.Version != "" {
		version = cfg.Version
	}
	return Options{
		Name:           cfg.Name,
		Version:        version,
		Instructions:   cfg.Instructions,
		RequestTimeout: cfg.RequestTimeout,
	}
}

// Server dispatches decoded JSON-RPC messages. It keeps no per-connection state, so one
// Server can serve any number of transports at once.
type Server struct {
	registry *tools.Registry
	store    memory.Store
	opts     Options
	logger   logging.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
	router   router.Router
	handler  transport.MessageHandler
}

// New creates a Server. registry and store may be nil; the matching capability is then
// not advertised and its list methods return empty results.
func New(registry *tools.Registry, store memory.Store, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "toolwire"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = config.DefaultRequestTimeout
	}
	s := &Server{
		registry: registry,
		store:    store,
		opts:     opts,
		logger:   logging.OrNoop(opts.Logger).WithField("component", "mcp_server"),
		metrics:  opts.Metrics,
		tracer:   otel.Tracer(tracerName),
	}
	s.router = router.NewRouter(s.logger)
	s.registerRoutes()
	s.handler = middleware.NewChain(s.handleMessage).
		Use(middleware.Recover(s.logger)).
		Use(middleware.SizeLimit(transport.MaxMessageSize)).
		Handler()
	return s
}

func (s *Server) registerRoutes() {
	routes := []router.Route{
		{Method: protocol.MethodInitialize, Handler: s.handleInitialize},
		{Method: protocol.MethodPing, Handler: s.handlePing},
		{Method: protocol.MethodToolsList, Handler: s.handleToolsList},
		{Method: protocol.MethodToolsCall, Handler: s.handleToolsCall},
		{Method: protocol.MethodResourcesList, Handler: s.handleResourcesList},
		{Method: protocol.MethodResourcesRead, Handler: s.handleResourcesRead},
		{Method: protocol.NotificationInitialized, NotificationHandler: s.handleInitialized},
		{Method: protocol.NotificationInitializedShort, NotificationHandler: s.handleInitialized},
		{Method: protocol.NotificationCancelled, NotificationHandler: s.handleCancelled},
	}
	for _, r := range routes {
		if err := s.router.AddRoute(r); err != nil {
			// Static table; a failure here is a programming error.
			panic(err)
		}
	}
}

// HandleMessage processes one serialized message and returns the serialized reply, or
// nil when no reply is due (notifications and stray responses). The returned error is
// only set when the reply itself could not be encoded.
func (s *Server) HandleMessage(ctx context.Context, msg []byte) ([]byte, error) {
	return s.handler(ctx, msg)
}

func (s *Server) handleMessage(ctx context.Context, msg []byte) ([]byte, error) {
	env, err := protocol.Decode(msg)
	if err != nil {
		var decodeErr *protocol.DecodeError
		if errors.As(err, &decodeErr) {
			s.logger.Warn("Rejecting undecodable message.", "code", decodeErr.Object.Code, "error", decodeErr.Object.Message)
			s.metrics.RecordError("server", decodeErr.Object.Message)
			return json.Marshal(protocol.NewErrorResponse(decodeErr.ID, decodeErr.Object))
		}
		return json.Marshal(protocol.NewErrorResponse(protocol.ID{}, mcperrors.ToErrorObject(err)))
	}

	switch env.Kind {
	case protocol.KindResponse:
		s.logger.Warn("Dropping response sent to server.", "id", env.Response.ID.String())
		return nil, nil
	case protocol.KindNotification:
		n := env.Notification
		if _, err := s.router.Route(ctx, n.Method, n.Params, true); err != nil {
			s.logger.Warn("Notification handler failed.", "method", n.Method, "error", err)
		}
		return nil, nil
	default:
		return json.Marshal(s.handleRequest(ctx, env.Request))
	}
}

func (s *Server) handleRequest(ctx context.Context, req *protocol.Request) *protocol.Response {
	ctx, span := s.tracer.Start(ctx, req.Method, trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", req.Method),
			attribute.String("rpc.jsonrpc.request_id", req.ID.String()),
		))
	defer span.End()

	start := time.Now()
	result, err := s.router.Route(ctx, req.Method, req.Params, false)
	outcome := metrics.OutcomeOK
	defer func() { s.metrics.RecordRequest(metrics.RoleServer, req.Method, outcome, time.Since(start)) }()

	if err != nil {
		obj := mcperrors.ToErrorObject(err)
		outcome = metrics.OutcomeRemoteError
		span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", obj.Code))
		span.SetStatus(codes.Error, obj.Message)
		if obj.Code == protocol.CodeInternalError {
			s.logger.Error("Request failed.", "method", req.Method, "id", req.ID.String(), "error", err)
			s.metrics.RecordError("server", err.Error())
		} else {
			s.logger.Debug("Request rejected.", "method", req.Method, "id", req.ID.String(), "code", obj.Code, "message", obj.Message)
		}
		return protocol.NewErrorResponse(req.ID, obj)
	}

	resp, err := protocol.NewResultResponse(req.ID, result)
	if err != nil {
		outcome = metrics.OutcomeRemoteError
		s.logger.Error("Failed to encode result.", "method", req.Method, "error", err)
		return protocol.NewErrorResponse(req.ID, mcperrors.ToErrorObject(mcperrors.NewInternal("Internal error", err)))
	}
	return resp
}

// Capabilities returns what this server advertises during initialize.
func (s *Server) Capabilities() protocol.ServerCapabilities {
	var caps protocol.ServerCapabilities
	if s.registry != nil {
		caps.Tools = &protocol.ListChangedCapability{}
	}
	if s.store != nil {
		caps.Resources = &protocol.ResourcesCapability{}
	}
	return caps
}

// Routes lists the methods the server answers.
func (s *Server) Routes() []string {
	return s.router.GetRoutes()
}

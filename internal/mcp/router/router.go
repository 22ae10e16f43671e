// file: internal/mcp/router/router.go

// Package router dispatches MCP method calls to registered handlers.
package router

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/mcperrors"
)

// Handler handles a request and returns the marshaled result.
type Handler func(ctx context.Context, params json.RawMessage) (json.RawMessage, error)

// NotificationHandler handles a notification. Its error is only logged by the caller.
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// Route maps a method name to its handlers. At least one handler must be set.
type Route struct {
	Method              string
	Handler             Handler
	NotificationHandler NotificationHandler
}

// Router is a method table.
type Router interface {
	// AddRoute registers a route. Methods may only be registered once.
	AddRoute(route Route) error
	// Route dispatches a call. For notifications the result is always nil.
	Route(ctx context.Context, method string, params json.RawMessage, isNotification bool) (json.RawMessage, error)
	// GetRoutes returns the registered method names, sorted.
	GetRoutes() []string
}

type router struct {
	routes map[string]Route
	mu     sync.RWMutex
	logger logging.Logger
}

// NewRouter creates an empty Router.
func NewRouter(logger logging.Logger) Router {
	return &router{
		routes: make(map[string]Route),
		logger: logging.OrNoop(logger).WithField("component", "mcp_router"),
	}
}

func (r *router) AddRoute(route Route) error {
	if route.Method == "" {
		return errors.New("cannot register route with empty method name")
	}
	if route.Handler == nil && route.NotificationHandler == nil {
		return errors.Newf("route for method %q must have a handler", route.Method)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[route.Method]; exists {
		r.logger.Warn("Attempted to register duplicate route.", "method", route.Method)
		return errors.Newf("route for method %q already registered", route.Method)
	}
	r.routes[route.Method] = route
	r.logger.Debug("Registered route.", "method", route.Method)
	return nil
}

func (r *router) Route(ctx context.Context, method string, params json.RawMessage, isNotification bool) (json.RawMessage, error) {
	r.mu.RLock()
	route, exists := r.routes[method]
	r.mu.RUnlock()

	if isNotification {
		switch {
		case !exists:
			r.logger.Debug("Ignoring unknown notification.", "method", method)
			return nil, nil
		case route.NotificationHandler != nil:
			return nil, route.NotificationHandler(ctx, params)
		default:
			r.logger.Warn("Notification sent to a request method; result discarded.", "method", method)
			_, err := route.Handler(ctx, params)
			return nil, err
		}
	}

	if !exists || route.Handler == nil {
		r.logger.Warn("Method not found in router.", "method", method)
		return nil, mcperrors.NewMethodNotFound(method)
	}
	r.logger.Debug("Routing to request handler.", "method", method)
	return route.Handler(ctx, params)
}

func (r *router) GetRoutes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods := make([]string, 0, len(r.routes))
	for method := range r.routes {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

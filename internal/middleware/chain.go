// file: internal/middleware/chain.go

// Package middleware provides chainable wrappers around the server's message handler.
package middleware

import (
	"github.com/dkoosis/toolwire/internal/transport"
)

// MiddlewareFunc wraps a handler with additional behavior.
type MiddlewareFunc func(next transport.MessageHandler) transport.MessageHandler

// Chain composes middleware around a final handler.
type Chain interface {
	// Use appends a middleware. The first one added runs outermost.
	Use(mw MiddlewareFunc) Chain
	// Handler returns the composed handler.
	Handler() transport.MessageHandler
}

type middlewareChain struct {
	handler     transport.MessageHandler
	middlewares []MiddlewareFunc
	finalized   bool
}

// NewChain creates a chain ending in finalHandler.
func NewChain(finalHandler transport.MessageHandler) Chain {
	return &middlewareChain{handler: finalHandler}
}

func (c *middlewareChain) Use(mw MiddlewareFunc) Chain {
	if c.finalized {
		return NewChain(c.handler).Use(mw)
	}
	c.middlewares = append(c.middlewares, mw)
	return c
}

func (c *middlewareChain) Handler() transport.MessageHandler {
	if c.finalized {
		return c.handler
	}
	handler := c.handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	c.finalized = true
	c.handler = handler
	return handler
}

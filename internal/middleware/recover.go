// file: internal/middleware/recover.go
package middleware

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/transport"
)

// Recover turns a panic in next into an InternalError response for the offending request.
// Panics while handling a notification are logged and swallowed.
func Recover(logger logging.Logger) MiddlewareFunc {
	logger = logging.OrNoop(logger)
	return func(next transport.MessageHandler) transport.MessageHandler {
		return func(ctx context.Context, msg []byte) (resp []byte, err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.Error("Recovered from panic in message handler.", "panic", fmt.Sprint(r))
				id, isRequest := requestID(msg)
				if !isRequest {
					resp, err = nil, nil
					return
				}
				resp, err = json.Marshal(protocol.NewErrorResponse(id,
					protocol.NewErrorObject(protocol.CodeInternalError, "Internal error", nil)))
			}()
			return next(ctx, msg)
		}
	}
}

// SizeLimit rejects messages larger than limit with an InvalidRequest response.
func SizeLimit(limit int) MiddlewareFunc {
	return func(next transport.MessageHandler) transport.MessageHandler {
		return func(ctx context.Context, msg []byte) ([]byte, error) {
			if len(msg) > limit {
				obj := protocol.NewErrorObject(protocol.CodeInvalidRequest,
					fmt.Sprintf("Invalid Request: message of %d bytes exceeds limit of %d", len(msg), limit), nil)
				return json.Marshal(protocol.NewErrorResponse(protocol.ID{}, obj))
			}
			return next(ctx, msg)
		}
	}
}

// requestID returns the id of msg if it decodes as a request.
func requestID(msg []byte) (protocol.ID, bool) {
	env, err := protocol.Decode(msg)
	if err != nil || env.Kind != protocol.KindRequest {
		return protocol.ID{}, false
	}
	return env.Request.ID, true
}

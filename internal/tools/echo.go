// file: internal/tools/echo.go
package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// EchoToolName is the name of the built-in diagnostic tool.
const EchoToolName = "echo"

var echoSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "text": {"type": "string", "description": "Text to echo back."},
    "repeat": {"type": "integer", "minimum": 1, "maximum": 10, "description": "How many times to repeat the text."}
  },
  "required": ["text"]
}`)

// Echo returns its input text. It is useful for checking connectivity end to end.
type Echo struct{}

// NewEcho creates the echo tool.
func NewEcho() *Echo { return &Echo{} }

func (*Echo) Name() string { return EchoToolName }

func (*Echo) Description() string { return "Echoes the given text back to the caller." }

func (*Echo) ParametersSchema() json.RawMessage { return echoSchema }

// Execute returns args.text, repeated args.repeat times separated by spaces.
func (*Echo) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	var in struct {
		Text   string `json:"text"`
		Repeat int    `json:"repeat"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return Failed("invalid arguments: " + err.Error()), nil
	}
	if in.Repeat < 1 {
		in.Repeat = 1
	}
	parts := make([]string, in.Repeat)
	for i := range parts {
		parts[i] = in.Text
	}
	return OK(strings.Join(parts, " ")), nil
}

// file: internal/schema/name_rules.go
package schema

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

// NameRule defines validation rules for a tool name.
type NameRule struct {
	Pattern     *regexp.Regexp
	Description string
	MaxLength   int
}

// ToolNameRule is applied when a tool is registered.
var ToolNameRule = NameRule{
	Pattern:     regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`),
	Description: "must start with a letter, followed by letters, digits, '_', '-' or '.'",
	MaxLength:   64,
}

// ValidateToolName checks name against ToolNameRule.
func ValidateToolName(name string) error {
	return ToolNameRule.Validate(name)
}

// Validate checks name against the rule.
func (r NameRule) Validate(name string) error {
	if name == "" {
		return errors.New("empty name is not allowed")
	}
	if len(name) > r.MaxLength {
		return errors.Newf("name %q exceeds maximum length of %d characters", name, r.MaxLength)
	}
	if !r.Pattern.MatchString(name) {
		return errors.Newf("invalid name %q: %s", name, r.Description)
	}
	return nil
}

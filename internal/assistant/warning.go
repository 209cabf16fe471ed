package assistant

import (
	"errors"
	"strings"

	"med-assistant/internal/inference"
)

// WarningPrefix starts every assistant turn produced from a failed remote call.
const WarningPrefix = "⚠️ Error: "

var serviceNames = map[string]string{
	inference.CapabilityChat:     "The chat service",
	inference.CapabilityEntities: "The medical entity service",
	inference.CapabilityCaption:  "The image description service",
}

// Warning renders a remote failure as transcript text.
func Warning(err error) string {
	var ie *inference.Error
	if !errors.As(err, &ie) {
		return WarningPrefix + "The assistant could not complete the request."
	}
	name, ok := serviceNames[ie.Capability]
	if !ok {
		name = "A remote service"
	}
	if ie.Kind == inference.Transient {
		return WarningPrefix + name + " is temporarily unavailable, please try again."
	}
	return WarningPrefix + name + " returned an unexpected response."
}

// composer collects response fragments. Warnings lead so a failed turn always opens with WarningPrefix.
type composer struct {
	warnings []string
	parts    []string
	calls    int
	failures int
}

func (c *composer) ok(fragment string) {
	c.calls++
	if fragment != "" {
		c.parts = append(c.parts, fragment)
	}
}

func (c *composer) fail(err error) {
	c.calls++
	c.failures++
	c.warnings = append(c.warnings, Warning(err))
}

// add appends a fragment that did not come from a remote call.
func (c *composer) add(fragment string) {
	if fragment != "" {
		c.parts = append(c.parts, fragment)
	}
}

func (c *composer) text() string {
	all := make([]string, 0, len(c.warnings)+len(c.parts))
	all = append(all, c.warnings...)
	all = append(all, c.parts...)
	return strings.Join(all, "\n\n")
}

func (c *composer) outcome() Outcome {
	switch {
	case c.failures == 0:
		return OutcomeOK
	case c.failures == c.calls:
		return OutcomeFailed
	default:
		return OutcomeDegraded
	}
}

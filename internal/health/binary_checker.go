package health

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// BinaryChecker verifies a command is on PATH and answers --version.
// A missing optional binary is degraded; a missing required one is unhealthy.
type BinaryChecker struct {
	binary   string
	required bool
	args     []string
}

func NewBinaryChecker(binary string, required bool) *BinaryChecker {
	return &BinaryChecker{binary: binary, required: required, args: []string{"--version"}}
}

func (c *BinaryChecker) Name() string {
	return c.binary + "-binary"
}

func (c *BinaryChecker) missing(message string) *Result {
	if c.required {
		return Unhealthy(message)
	}
	return Degraded(message)
}

func (c *BinaryChecker) Check(ctx context.Context) *Result {
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return c.missing(c.binary+" command not found in PATH").
			WithDetail("error", err.Error()).
			WithDetail("required", c.required)
	}

	output, err := exec.CommandContext(ctx, path, c.args...).CombinedOutput()
	if err != nil {
		return c.missing("failed to execute "+c.binary).
			WithDetail("path", path).
			WithDetail("error", err.Error()).
			WithDetail("output", strings.TrimSpace(string(output)))
	}

	result := Healthy(c.binary+" is installed and accessible").WithDetail("path", path)
	if version := parseVersion(string(output)); version != "" {
		result.WithDetail("version", version)
	}
	return result
}

// parseVersion returns the first dotted version number in output
func parseVersion(output string) string {
	return versionPattern.FindString(output)
}

package ir

import (
	"fmt"
	"strings"
)

// ScopeNotFoundError indicates the target resource group does not exist.
type ScopeNotFoundError struct {
	Scope string
}

func (e *ScopeNotFoundError) Error() string {
	return fmt.Sprintf("resource scope %q not found", e.Scope)
}

// MissingResourceError indicates discovery found no resource of a required kind.
type MissingResourceError struct {
	Kind  Kind
	Scope string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("no %s resource found in scope %q", e.Kind, e.Scope)
}

// AmbiguousResourceError indicates discovery found more than one resource of
// a kind and no explicit name was given to disambiguate.
type AmbiguousResourceError struct {
	Kind  Kind
	Scope string
	Names []string
}

func (e *AmbiguousResourceError) Error() string {
	return fmt.Sprintf("multiple %s resources in scope %q (%s); pass an explicit name to disambiguate",
		e.Kind, e.Scope, strings.Join(e.Names, ", "))
}

// CyclicDependencyError reports a dependency cycle by its member names.
// No resource creation is attempted when it is returned.
type CyclicDependencyError struct {
	Members []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Members, " -> "))
}

// InvalidConfigurationError reports a locally detected configuration problem
// (bad SKU, bad kind, malformed reference, charset violation).
type InvalidConfigurationError struct {
	Name   string
	Detail string
}

func (e *InvalidConfigurationError) Error() string {
	if e.Name == "" {
		return "invalid configuration: " + e.Detail
	}
	return fmt.Sprintf("invalid configuration for %q: %s", e.Name, e.Detail)
}

// PlatformCallFailedError wraps a failed mutating or query call against the
// platform. The cause carries the platform's error payload verbatim; callers
// must not embed secret material in Op.
type PlatformCallFailedError struct {
	Op    string
	Cause error
}

func (e *PlatformCallFailedError) Error() string {
	return fmt.Sprintf("platform call %s failed: %v", e.Op, e.Cause)
}

func (e *PlatformCallFailedError) Unwrap() error { return e.Cause }

// GrantFailedError reports a failed role grant. It is non-fatal: the setup
// procedure records it as a warning and continues.
type GrantFailedError struct {
	PrincipalID string
	Scope       string
	Cause       error
}

func (e *GrantFailedError) Error() string {
	return fmt.Sprintf("failed to grant principal %s access on %s: %v", e.PrincipalID, e.Scope, e.Cause)
}

func (e *GrantFailedError) Unwrap() error { return e.Cause }

// DownstreamStepFailedError reports a failed downstream data-load step.
// Non-fatal; the run report points the operator at the step's log file.
type DownstreamStepFailedError struct {
	LogPath string
	Cause   error
}

func (e *DownstreamStepFailedError) Error() string {
	return fmt.Sprintf("downstream data load failed (see %s): %v", e.LogPath, e.Cause)
}

func (e *DownstreamStepFailedError) Unwrap() error { return e.Cause }

package cli

import (
	"context"
	"errors"

	"github.com/rescale/rescale-staging/internal/diskspace"
	"github.com/rescale/rescale-staging/internal/staging"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitConfiguration  = 2
	ExitEntitlement    = 3
	ExitRemote         = 4
	ExitInsufficientFS = 5
	ExitCancelled      = 130
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case staging.IsConfigurationError(err), staging.IsIncompleteBindingError(err):
		return ExitConfiguration
	case staging.IsEntitlementError(err):
		return ExitEntitlement
	case staging.IsRemoteProvisioningError(err):
		return ExitRemote
	case diskspace.IsInsufficientSpaceError(err):
		return ExitInsufficientFS
	default:
		return ExitFailure
	}
}

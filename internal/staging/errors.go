package staging

import (
	"errors"
)

// Error taxonomy for staging and workspace provisioning. Every error returned by
// this subsystem wraps exactly one of these, so callers can branch with errors.Is.
var (
	// ErrConfiguration indicates a programmer or configuration mistake: unknown
	// staging type or scope axis, staging class mismatch, unsupported backend.
	ErrConfiguration = errors.New("staging configuration error")

	// ErrIncompleteBinding indicates a provider slot required by a file or table
	// strategy is unset.
	ErrIncompleteBinding = errors.New("incomplete staging binding")

	// ErrEntitlement indicates the project token lacks the feature needed for a backend.
	ErrEntitlement = errors.New("project is not entitled")

	// ErrRemoteProvisioning wraps failures of the workspace-management API,
	// including malformed response data.
	ErrRemoteProvisioning = errors.New("workspace provisioning failed")

	// ErrNotImplemented is returned by NullProvider when a deliberately unbound
	// capability is used.
	ErrNotImplemented = errors.New("not implemented")
)

// IsConfigurationError reports whether err is a configuration error.
// Configuration errors are deterministic and must not be retried.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsIncompleteBindingError reports whether err is an incomplete binding error.
func IsIncompleteBindingError(err error) bool {
	return errors.Is(err, ErrIncompleteBinding)
}

// IsEntitlementError reports whether err is an entitlement error.
func IsEntitlementError(err error) bool {
	return errors.Is(err, ErrEntitlement)
}

// IsRemoteProvisioningError reports whether err came from the workspace-management API.
func IsRemoteProvisioningError(err error) bool {
	return errors.Is(err, ErrRemoteProvisioning)
}

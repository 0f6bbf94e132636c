package domain

import "errors"

var (
	ErrProfileNotFound       = errors.New("profile not found")
	ErrNameRequired          = errors.New("profile name is required")
	ErrEndpointOrKeyRequired = errors.New("custom profiles need a URL or a key")
	ErrUnsupportedSource     = errors.New("unsupported source")
	ErrVault                 = errors.New("secret vault failure")
	ErrModelList             = errors.New("model listing failed")
	ErrAuthRequired          = errors.New("authentication required")
	ErrStalePlan             = errors.New("sync plan no longer matches profiles")
	ErrInvalidConfig         = errors.New("invalid configuration")
)

// IsValidation reports whether err is a user input validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrNameRequired) || errors.Is(err, ErrEndpointOrKeyRequired)
}

package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrUserNotFound       = fmt.Errorf("no user exists with that username")
	ErrNoScrobbles        = fmt.Errorf("no scrobbles found")

	// Storage errors
	ErrNotFound = fmt.Errorf("record not found")

	// Dashboard errors
	ErrUnknownTab          = fmt.Errorf("unknown tab")
	ErrUnknownDropdown     = fmt.Errorf("unknown dropdown")
	ErrRenderTargetMissing = fmt.Errorf("render target missing")
	ErrMissingDataset      = fmt.Errorf("dataset missing or empty")
	ErrControllerClosed    = fmt.Errorf("dashboard controller closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
	ErrInvalidPeriod   = fmt.Errorf("invalid period")
	ErrUnknownFormat   = fmt.Errorf("unknown export format")
)

package phantombuster

import "errors"

var (
	// ErrLaunch is returned when the platform refuses to start an agent
	ErrLaunch = errors.New("phantom launch failed")

	// ErrTransientFetch marks a status fetch that may succeed if retried
	// (network failure, timeout, 5xx, rate limiting)
	ErrTransientFetch = errors.New("transient status fetch failure")

	// ErrPermanentFetch marks a status fetch that will not succeed on retry (4xx)
	ErrPermanentFetch = errors.New("permanent status fetch failure")

	// ErrDownload is returned when a result artifact cannot be retrieved
	ErrDownload = errors.New("result download failed")
)

package capability

import "errors"

var (
	// ErrMalformedDevice is returned when a descriptor cannot be classified:
	// it has no category, a spec without a string type, or a status code with
	// neither a usable status_range nor function spec.
	ErrMalformedDevice = errors.New("capability: malformed device")

	// ErrInvalidTable is returned when a capability table document cannot be decoded.
	ErrInvalidTable = errors.New("capability: invalid table")
)

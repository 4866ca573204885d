package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidName is returned when a device name is too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidStatus is returned when a status update is malformed.
	ErrInvalidStatus = errors.New("device: invalid status")

	// ErrEntityNotFound is returned when an entity unique id does not exist.
	ErrEntityNotFound = errors.New("device: entity not found")

	// ErrEntityExists is returned when renaming onto an id that is already taken.
	ErrEntityExists = errors.New("device: entity already exists")
)

package device

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	// MaxIDLength bounds a Tuya device id.
	MaxIDLength = 64

	// MaxNameLength bounds a device name.
	MaxNameLength = 255
)

// Tuya device ids are alphanumeric; sub-devices behind gateways may add '_' or '-'.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateDevice checks that a device can be stored and addressed in topics.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrInvalidDevice)
	}
	if err := ValidateID(d.ID); err != nil {
		return err
	}
	if utf8.RuneCountInString(d.Name) > MaxNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	return nil
}

// ValidateID checks a device id.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	case len(id) > MaxIDLength:
		return fmt.Errorf("%w: id longer than %d characters", ErrInvalidDevice, MaxIDLength)
	case !idPattern.MatchString(id):
		return fmt.Errorf("%w: id %q contains invalid characters", ErrInvalidDevice, id)
	}
	return nil
}

// ValidateStatus checks a batch of status updates.
func ValidateStatus(updates []StatusUpdate) error {
	for i, u := range updates {
		if u.Code == "" {
			return fmt.Errorf("%w: update %d has no code", ErrInvalidStatus, i)
		}
	}
	return nil
}

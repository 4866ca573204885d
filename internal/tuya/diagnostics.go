package tuya

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidDiagnostics is returned when a dump has no recognisable device list.
var ErrInvalidDiagnostics = errors.New("tuya: invalid diagnostics document")

// DecodeFailure records a device entry that could not be decoded.
type DecodeFailure struct {
	// Ref is the device id when it could be read, otherwise "#<index>".
	Ref string `json:"ref"`
	Err string `json:"error"`
}

// Diagnostics is the decoded device list of a dump.
type Diagnostics struct {
	Devices  []*DeviceDescriptor `json:"devices"`
	Failures []DecodeFailure     `json:"failures,omitempty"`
}

// ParseDiagnostics reads a diagnostics dump. Accepted shapes:
//
//	{"devices": [...]}                 list of descriptors
//	{"devices": {"<id>": {...}}}       descriptors keyed by id
//	{"data": {"devices": ...}}         Home Assistant diagnostics download
//	[...]                              bare list
//
// Each device is decoded on its own; one malformed device is reported in
// Failures and does not stop the others.
func ParseDiagnostics(r io.Reader) (*Diagnostics, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading diagnostics: %w", err)
	}

	list, err := locateDevices(raw)
	if err != nil {
		return nil, err
	}

	return decodeDevices(list)
}

func locateDevices(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDiagnostics)
	}
	if raw[0] == '[' {
		return raw, nil
	}

	var envelope struct {
		Devices json.RawMessage `json:"devices"`
		Data    *struct {
			Devices json.RawMessage `json:"devices"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDiagnostics, err)
	}

	switch {
	case len(envelope.Devices) > 0:
		return envelope.Devices, nil
	case envelope.Data != nil && len(envelope.Data.Devices) > 0:
		return envelope.Data.Devices, nil
	default:
		return nil, fmt.Errorf("%w: no devices found", ErrInvalidDiagnostics)
	}
}

func decodeDevices(list json.RawMessage) (*Diagnostics, error) {
	out := &Diagnostics{}

	switch list[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDiagnostics, err)
		}
		for i, item := range items {
			out.add(fmt.Sprintf("#%d", i), "", item)
		}
	case '{':
		var items map[string]json.RawMessage
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDiagnostics, err)
		}
		for _, id := range SortedKeys(items) {
			out.add(id, id, items[id])
		}
	default:
		return nil, fmt.Errorf("%w: devices must be a list or an object", ErrInvalidDiagnostics)
	}

	return out, nil
}

func (d *Diagnostics) add(ref, id string, raw json.RawMessage) {
	device, err := DecodeDescriptor(raw)
	if err != nil {
		if probe := probeID(raw); probe != "" {
			ref = probe
		}
		d.Failures = append(d.Failures, DecodeFailure{Ref: ref, Err: err.Error()})
		return
	}
	if device.ID == "" {
		device.ID = id
	}
	d.Devices = append(d.Devices, device)
}

// DecodeDescriptor decodes one device. A map field of the wrong shape
// (a list where an object is expected, a spec that is not an object) is an error.
func DecodeDescriptor(raw []byte) (*DeviceDescriptor, error) {
	var d DeviceDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decoding device: %w", err)
	}
	return &d, nil
}

func probeID(raw json.RawMessage) string {
	var p struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(raw, &p) != nil {
		return ""
	}
	return p.ID
}

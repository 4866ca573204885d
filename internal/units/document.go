package units

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// Document is the serialised form of a unit in the units document.
type Document struct {
	Unit           string   `json:"unit"`
	Aliases        []string `json:"aliases,omitempty"`
	DeviceClasses  []string `json:"device_classes"`
	ConversionUnit string   `json:"conversion_unit,omitempty"`
}

func (d Document) clone() Document {
	d.Aliases = slices.Clone(d.Aliases)
	d.DeviceClasses = slices.Clone(d.DeviceClasses)
	return d
}

// FromDocuments builds a registry, resolving each conversion function from
// its (unit, conversion_unit) pair. A pair with no known function leaves the
// unit without a conversion; Unconverted reports those units.
func FromDocuments(docs []Document) *Registry {
	list := make([]UnitOfMeasurement, 0, len(docs))
	for _, d := range docs {
		fn, _ := ConversionFor(d.Unit, d.ConversionUnit) //nolint:errcheck // unknown pairs keep Convert nil
		list = append(list, UnitOfMeasurement{
			Unit:           d.Unit,
			Aliases:        d.Aliases,
			DeviceClasses:  d.DeviceClasses,
			ConversionUnit: d.ConversionUnit,
			Convert:        fn,
		})
	}
	return New(list)
}

// Documents returns the registry in document form.
func (r *Registry) Documents() []Document {
	out := make([]Document, len(r.units))
	for i, u := range r.units {
		out[i] = Document{
			Unit:           u.Unit,
			Aliases:        slices.Clone(u.Aliases),
			DeviceClasses:  slices.Clone(u.DeviceClasses),
			ConversionUnit: u.ConversionUnit,
		}
	}
	return out
}

// ParseDocuments decodes the units document. It accepts a list of units or
// the published index form {device_class: {unit_or_alias: unit}}, in which a
// unit appears once per device class and alias.
func ParseDocuments(data []byte) ([]Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	if data[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		return docs, nil
	}

	var index map[string]map[string]Document
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	var docs []Document
	byUnit := make(map[string]int)

	for _, dc := range tuya.SortedKeys(index) {
		entries := index[dc]
		for _, name := range tuya.SortedKeys(entries) {
			entry := entries[name]

			i, seen := byUnit[entry.Unit]
			if !seen {
				i = len(docs)
				byUnit[entry.Unit] = i
				docs = append(docs, Document{Unit: entry.Unit, ConversionUnit: entry.ConversionUnit})
			}

			d := &docs[i]
			d.DeviceClasses = appendUnique(d.DeviceClasses, dc)
			for _, other := range entry.DeviceClasses {
				d.DeviceClasses = appendUnique(d.DeviceClasses, other)
			}
			for _, alias := range entry.Aliases {
				d.Aliases = appendUnique(d.Aliases, alias)
			}
			if name != entry.Unit {
				d.Aliases = appendUnique(d.Aliases, name)
			}
		}
	}

	return docs, nil
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

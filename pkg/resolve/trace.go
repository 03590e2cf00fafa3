package resolve

import (
	"context"
	"encoding/json"
)

// Layer is a named result bag consulted by Trace, strongest first.
type Layer struct {
	Name    string
	Results map[string]any
}

// Trace captures how every layer contributed to an option lookup.
type Trace struct {
	Option string       `json:"option"`
	Group  string       `json:"group,omitempty"`
	Winner string       `json:"winner"`
	Value  any          `json:"value,omitempty"`
	Layers []Provenance `json:"layers"`
}

// Provenance details a single layer's answer for the traced option.
type Provenance struct {
	Layer string `json:"layer"`
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// LayerDefaults and LayerHTML name the implicit trailing layers of a Trace.
const (
	LayerDefaults = "defaults"
	LayerHTML     = "html"
)

// Trace reports what each layer holds for option without touching the
// remembered-group cache. The winner is the first layer that holds a value,
// then the default provider, then the markup default.
func (e *Engine) Trace(ctx context.Context, option, group string, layers ...Layer) (Trace, error) {
	trace := Trace{Option: option, Group: group, Winner: LayerHTML}
	key := option
	if group != "" {
		key = group
	}

	for _, layer := range layers {
		value, found := lookupResult(option, group, layer.Results)
		trace.Layers = append(trace.Layers, Provenance{
			Layer: layer.Name,
			Key:   key,
			Value: value,
			Found: found,
		})
		if found && trace.Winner == LayerHTML {
			trace.Winner, trace.Value = layer.Name, value
		}
	}

	entry := Provenance{Layer: LayerDefaults, Key: key}
	if e.defaults != nil {
		value, found, err := e.lookupDefault(ctx, option, group)
		if err != nil {
			return Trace{}, err
		}
		entry.Value, entry.Found = value, found
	}
	trace.Layers = append(trace.Layers, entry)
	if entry.Found && trace.Winner == LayerHTML {
		trace.Winner, trace.Value = LayerDefaults, entry.Value
	}
	return trace, nil
}

// ToJSON serialises the trace for logging or CLI output.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON decodes a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

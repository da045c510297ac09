package compose

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// DecodeNode decodes a duck-typed node as delivered by a scene store and
// validates it.
//
// Keys follow the mapstructure tags of SceneNode. Missing optional fields
// take their defaults: opacity 1, blend mode normal, and DefaultGrading for
// any grading field not listed. Bounds may also be given as a four element
// list [min_x, min_y, max_x, max_y].
//
// On error the returned node holds whatever decoded successfully, so a
// caller can still register a malformed node under its id. The error is a
// *NodeError wrapping ErrInvalidNode.
func DecodeNode(raw map[string]any) (SceneNode, error) {
	n := SceneNode{Opacity: DefaultOpacity, BlendMode: BlendNormal}

	rest := make(map[string]any, len(raw))
	var gradingRaw any
	for k, v := range raw {
		if k == "grading" {
			gradingRaw = v
			continue
		}
		rest[k] = v
	}

	if err := decodeInto(rest, &n); err != nil {
		return n, &NodeError{ID: n.ID, Err: fmt.Errorf("%w: %w", ErrInvalidNode, err)}
	}
	if gradingRaw != nil {
		g := DefaultGrading()
		if err := decodeInto(gradingRaw, &g); err != nil {
			return n, &NodeError{ID: n.ID, Err: fmt.Errorf("%w: grading: %w", ErrInvalidNode, err)}
		}
		n.Grading = &g
	}
	if err := n.Validate(); err != nil {
		return n, &NodeError{ID: n.ID, Err: err}
	}
	return n, nil
}

// DecodeBatch decodes a change set of the form
//
//	{"added": [node...], "updated": [node...], "removed": [id...]}
//
// Nodes that fail validation but carry an id are kept in the batch so the
// registry can track them as invalid. All problems are joined into the
// returned error.
func DecodeBatch(raw map[string]any) (Batch, error) {
	var (
		b    Batch
		errs []error
	)

	decodeList := func(key string) []SceneNode {
		items, ok := raw[key].([]any)
		if !ok {
			if raw[key] != nil {
				errs = append(errs, fmt.Errorf("%w: %s is %T, want a list", ErrInvalidNode, key, raw[key]))
			}
			return nil
		}
		nodes := make([]SceneNode, 0, len(items))
		for i, item := range items {
			m, ok := asStringMap(item)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s[%d] is %T, want a map", ErrInvalidNode, key, i, item))
				continue
			}
			n, err := DecodeNode(m)
			if err != nil {
				errs = append(errs, err)
			}
			if n.ID != "" {
				nodes = append(nodes, n)
			}
		}
		return nodes
	}

	b.Added = decodeList("added")
	b.Updated = decodeList("updated")

	if removed, ok := raw["removed"].([]any); ok {
		for _, r := range removed {
			id, ok := r.(string)
			if !ok || id == "" {
				errs = append(errs, fmt.Errorf("%w: removed id %v", ErrInvalidNode, r))
				continue
			}
			b.Removed = append(b.Removed, NodeID(id))
		}
	}
	return b, errors.Join(errs...)
}

// decodeInto decodes input over the current contents of out.
func decodeInto(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(rectListHook),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

var rectType = reflect.TypeOf(Rect{})

// rectListHook accepts [min_x, min_y, max_x, max_y] for Rect fields.
func rectListHook(from, to reflect.Type, data any) (any, error) {
	if to != rectType || from.Kind() != reflect.Slice {
		return data, nil
	}
	v := reflect.ValueOf(data)
	if v.Len() != 4 {
		return nil, fmt.Errorf("bounds list has %d elements, want 4", v.Len())
	}
	return map[string]any{
		"min_x": v.Index(0).Interface(),
		"min_y": v.Index(1).Interface(),
		"max_x": v.Index(2).Interface(),
		"max_y": v.Index(3).Interface(),
	}, nil
}

// asStringMap accepts the map shapes produced by the YAML, TOML and JSON
// decoders.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

package permission

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// UnknownFlagsError is returned when an external flag object carries keys
// that are not registered. It lists both the offending keys and the full set
// of valid flag names so the caller can correct the request.
type UnknownFlagsError struct {
	Unknown []string
	Valid   []string
}

func (e *UnknownFlagsError) Error() string {
	return fmt.Sprintf(
		"unknown flags [%s]; valid flags are [%s]",
		strings.Join(e.Unknown, ", "),
		strings.Join(e.Valid, ", "),
	)
}

// Codec converts between the internal [Mask] form and the three external
// representations accepted at the API boundary: a plain integer, a numeric
// string, or an object mapping flag name to boolean.
type Codec struct {
	registry *Registry
}

// NewCodec creates a [Codec] over the given registry. The registry should be
// frozen before the codec is used.
func NewCodec(registry *Registry) *Codec {
	return &Codec{registry: registry}
}

// Registry returns the codec's underlying flag registry.
func (c *Codec) Registry() *Registry {
	return c.registry
}

// Encode builds a mask from a set of flag names. Unknown names are a caller
// error, never silently dropped.
func (c *Codec) Encode(names []string) (Mask, error) {
	var mask Mask
	var unknown []string

	for _, name := range names {
		bit, ok := c.registry.Bit(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		mask.Set(bit)
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return 0, &UnknownFlagsError{Unknown: unknown, Valid: c.registry.Names()}
	}

	return mask, nil
}

// Decode maps every registered flag to whether its bit is set in the mask.
func (c *Codec) Decode(mask Mask) map[string]bool {
	names := c.registry.Names()
	out := make(map[string]bool, len(names))
	for bit, name := range names {
		out[name] = mask.Has(bit)
	}
	return out
}

// Marshal is the canonical external form of a mask: an object containing
// only the flags that are true. Raw integers never cross the API boundary
// on the way out.
func (c *Codec) Marshal(mask Mask) map[string]bool {
	out := make(map[string]bool)
	for bit, name := range c.registry.Names() {
		if mask.Has(bit) {
			out[name] = true
		}
	}
	return out
}

// Parse normalizes one of the three accepted external shapes to the internal
// mask form. Integers and numeric strings are range-checked against the
// registered flag count; objects are checked for unknown keys.
func (c *Codec) Parse(value any) (Mask, error) {
	switch v := value.(type) {
	case Mask:
		return c.checkRange(v)
	case int:
		if v < 0 {
			return 0, fmt.Errorf("flag mask cannot be negative: %d", v)
		}
		return c.checkRange(Mask(v))
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("flag mask cannot be negative: %d", v)
		}
		return c.checkRange(Mask(v))
	case uint64:
		return c.checkRange(Mask(v))
	case float64:
		// JSON numbers decode as float64.
		if v < 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("flag mask must be a non-negative integer: %v", v)
		}
		return c.checkRange(Mask(v))
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("flag mask string %q is not a non-negative integer", v)
		}
		return c.checkRange(Mask(parsed))
	case map[string]bool:
		return c.parseObject(v)
	case map[string]any:
		flags := make(map[string]bool, len(v))
		for name, raw := range v {
			set, ok := raw.(bool)
			if !ok {
				return 0, fmt.Errorf("flag %q must map to a boolean", name)
			}
			flags[name] = set
		}
		return c.parseObject(flags)
	default:
		return 0, fmt.Errorf("unsupported flag representation %T", value)
	}
}

func (c *Codec) parseObject(flags map[string]bool) (Mask, error) {
	var mask Mask
	var unknown []string

	for name, set := range flags {
		bit, ok := c.registry.Bit(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if set {
			mask.Set(bit)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return 0, &UnknownFlagsError{Unknown: unknown, Valid: c.registry.Names()}
	}

	return mask, nil
}

func (c *Codec) checkRange(mask Mask) (Mask, error) {
	if full := c.registry.Full(); mask&^full != 0 {
		return 0, fmt.Errorf(
			"flag mask %d has bits beyond the %d registered flags",
			mask.Raw(), c.registry.Count(),
		)
	}
	return mask, nil
}

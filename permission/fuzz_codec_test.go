package permission

import (
	"testing"
)

// FuzzParseNumericString exercises the numeric-string parse path with
// arbitrary input. Goal: no panics; accepted inputs must round-trip through
// Marshal/Encode without changing the mask.
func FuzzParseNumericString(f *testing.F) {
	f.Add("0")
	f.Add("7")
	f.Add("18446744073709551615")
	f.Add("")
	f.Add("-1")
	f.Add("1.5")
	f.Add("0x03")
	f.Add("{\"trusted_algorithm\": true}")

	registry := NewRegistry()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		if _, err := registry.Register(name); err != nil {
			f.Fatalf("register: %v", err)
		}
	}
	registry.Freeze()
	codec := NewCodec(registry)

	f.Fuzz(func(t *testing.T, input string) {
		mask, err := codec.Parse(input)
		if err != nil {
			return
		}

		var names []string
		for name, set := range codec.Marshal(mask) {
			if !set {
				t.Fatalf("Marshal(%d) contains false entry %q", mask.Raw(), name)
			}
			names = append(names, name)
		}

		reEncoded, err := codec.Encode(names)
		if err != nil {
			t.Fatalf("Encode after Marshal failed: %v", err)
		}
		if reEncoded != mask {
			t.Fatalf("round trip mismatch: %d vs %d", reEncoded.Raw(), mask.Raw())
		}
	})
}

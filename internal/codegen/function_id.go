package codegen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FunctionID identifies a tool by the namespace it was registered under and
// its function name within that namespace. It marshals to and from the
// "<namespace>.<name>" wire form the script runtime and REST surface both
// use to refer to a function.
type FunctionID struct {
	Namespace string
	Name      string
}

// String renders the canonical "<namespace>.<name>" form.
func (f FunctionID) String() string {
	return f.Namespace + "." + f.Name
}

// ParseFunctionID splits s on the first '.' into a namespace and name. It
// returns an error unless s contains exactly one '.', mirroring the strict
// round-trip the wire format requires: a function id with zero or more than
// one dot is rejected rather than guessed at.
func ParseFunctionID(s string) (FunctionID, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return FunctionID{}, fmt.Errorf("codegen: invalid function id %q: want \"namespace.name\"", s)
	}
	if strings.Contains(parts[1], ".") {
		// A second '.' anywhere in the name half means the id doesn't
		// round-trip: "<namespace>.<name>" must split into exactly two
		// non-empty parts, not "namespace.name.extra".
		return FunctionID{}, fmt.Errorf("codegen: invalid function id %q: more than one \".\"", s)
	}
	return FunctionID{Namespace: parts[0], Name: parts[1]}, nil
}

// MarshalJSON renders the FunctionID as its canonical string form.
func (f FunctionID) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON parses the canonical string form produced by MarshalJSON.
func (f *FunctionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFunctionID(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

package blueprint

import "errors"

// Raw wraps an unparsed blueprint payload and its origin.
type Raw struct {
	source Source
	data   []byte
}

// NewRaw constructs a Raw wrapper while validating the inputs.
func NewRaw(src Source, data []byte) (Raw, error) {
	if src == nil {
		return Raw{}, errors.New("blueprint: source is required")
	}
	if len(data) == 0 {
		return Raw{}, errors.New("blueprint: raw document is empty")
	}

	clone := append([]byte(nil), data...)
	return Raw{source: src, data: clone}, nil
}

// MustNewRaw panics if the wrapper cannot be created. Useful for tests.
func MustNewRaw(src Source, data []byte) Raw {
	raw, err := NewRaw(src, data)
	if err != nil {
		panic(err)
	}
	return raw
}

// Source returns the origin metadata for the payload.
func (r Raw) Source() Source {
	return r.source
}

// Bytes returns a copy of the payload.
func (r Raw) Bytes() []byte {
	return append([]byte(nil), r.data...)
}

// Location returns the string identifier for the origin.
func (r Raw) Location() string {
	if r.source == nil {
		return ""
	}
	return r.source.Location()
}

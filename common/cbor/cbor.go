// Package cbor encodes persisted records as canonical CBOR, so equal
// values always serialize to equal bytes.
package cbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

// Marshal encodes src. Encoding failures indicate a programming error and
// panic.
func Marshal(src interface{}) []byte {
	data, err := encMode.Marshal(src)
	if err != nil {
		panic(fmt.Sprintf("cbor: unencodable %T: %s", src, err))
	}
	return data
}

// Unmarshal decodes data into dst. A nil data leaves dst untouched.
func Unmarshal(data []byte, dst interface{}) error {
	if data == nil {
		return nil
	}
	if err := decMode.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("cbor: malformed record: %w", err)
	}
	return nil
}

func init() {
	enc := cbor.CanonicalEncOptions()
	enc.Time = cbor.TimeRFC3339Nano

	dec := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}

	var err error
	if encMode, err = enc.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = dec.DecMode(); err != nil {
		panic(err)
	}
}

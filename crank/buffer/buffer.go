// Package buffer implements the fixed-row crank buffer codec.
//
// A buffer is laid out as an 8 byte reserved discriminator followed by
// fixed width rows of a 32 byte identifier and a little-endian signed 64 bit
// eligibility timestamp. The first row with an all-zero identifier terminates
// the populated region.
package buffer

import (
	"encoding/binary"
	"fmt"

	"github.com/switchboard-xyz/sbv2-solana-sub000/common/errors"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

// Size returns the size in bytes of a buffer with the given capacity.
func Size(capacity uint32) uint64 {
	return api.HeaderSize + uint64(capacity)*api.RowSize
}

// Capacity returns the number of whole rows that fit into a buffer of the
// given size.
func Capacity(size int) uint32 {
	if size < api.HeaderSize {
		return 0
	}
	return uint32((size - api.HeaderSize) / api.RowSize)
}

// New allocates a zeroed buffer of the given capacity with the reserved
// discriminator written.
func New(capacity uint32) []byte {
	data := make([]byte, Size(capacity))
	copy(data, api.BufferDiscriminator[:])
	return data
}

// Decode decodes the populated rows of a buffer.
//
// Decoding stops at the first sentinel row or when fewer than a full row
// of bytes remain. Truncated trailing bytes are treated as end of data.
func Decode(data []byte) []api.Row {
	if len(data) < api.HeaderSize {
		return nil
	}

	var rows []api.Row
	for off := api.HeaderSize; off+api.RowSize <= len(data); off += api.RowSize {
		var row api.Row
		copy(row.ID[:], data[off:off+api.IDSize])
		if row.IsSentinel() {
			break
		}
		row.EligibleAt = int64(binary.LittleEndian.Uint64(data[off+api.IDSize : off+api.RowSize]))
		rows = append(rows, row)
	}
	return rows
}

// DecodeStrict validates the buffer layout and decodes its populated rows.
func DecodeStrict(data []byte) ([]api.Row, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	return Decode(data), nil
}

// Validate checks that the buffer has a reserved prefix followed by a whole
// number of rows.
func Validate(data []byte) error {
	if len(data) < api.HeaderSize {
		return errors.WithContext(api.ErrMalformedBuffer,
			fmt.Sprintf("size %d smaller than the reserved prefix", len(data)),
		)
	}
	if rem := (len(data) - api.HeaderSize) % api.RowSize; rem != 0 {
		return errors.WithContext(api.ErrMalformedBuffer,
			fmt.Sprintf("%d trailing bytes after the last row", rem),
		)
	}
	return nil
}

// Encode encodes rows into a newly allocated buffer of the given capacity.
//
// This is only used when initializing or simulating a buffer, ledger buffers
// are never mutated client-side.
func Encode(rows []api.Row, capacity uint32) ([]byte, error) {
	if uint64(len(rows)) > uint64(capacity) {
		return nil, errors.WithContext(api.ErrCapacityExceeded,
			fmt.Sprintf("%d rows, capacity %d", len(rows), capacity),
		)
	}

	data := New(capacity)
	for i, row := range rows {
		if row.IsSentinel() {
			return nil, errors.WithContext(api.ErrMalformedBuffer,
				fmt.Sprintf("row %d has a sentinel identifier", i),
			)
		}
		off := api.HeaderSize + i*api.RowSize
		copy(data[off:], row.ID[:])
		binary.LittleEndian.PutUint64(data[off+api.IDSize:], uint64(row.EligibleAt))
	}
	return data, nil
}

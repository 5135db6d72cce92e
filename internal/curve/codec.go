// internal/curve/codec.go
package curve

import (
	"encoding/binary"
	"fmt"
)

// ParamsLen is the wire size of an encoded parameter record:
// initial_price (8) + curve_steepness (8) + max_supply (8) + fee_rate (2).
// Little-endian, no padding, no version tag — schema changes require a new
// market type, so the layout must stay bit-for-bit stable.
const ParamsLen = 26

// MarshalBinary encodes the record into its 26-byte wire form.
func (p Params) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ParamsLen)
	binary.LittleEndian.PutUint64(buf[0:8], p.InitialPrice)
	binary.LittleEndian.PutUint64(buf[8:16], p.CurveSteepness)
	binary.LittleEndian.PutUint64(buf[16:24], p.MaxSupply)
	binary.LittleEndian.PutUint16(buf[24:26], p.FeeRateBps)
	return buf, nil
}

// UnmarshalBinary decodes a record from the first 26 bytes of data.
// Trailing bytes are tolerated so the record can be read in place from a
// larger account buffer. The decoded record is not validated; call
// Validate before pricing with it.
func (p *Params) UnmarshalBinary(data []byte) error {
	if len(data) < ParamsLen {
		return fmt.Errorf("curve params: need %d bytes, got %d", ParamsLen, len(data))
	}
	p.InitialPrice = binary.LittleEndian.Uint64(data[0:8])
	p.CurveSteepness = binary.LittleEndian.Uint64(data[8:16])
	p.MaxSupply = binary.LittleEndian.Uint64(data[16:24])
	p.FeeRateBps = binary.LittleEndian.Uint16(data[24:26])
	return nil
}

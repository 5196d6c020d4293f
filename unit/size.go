// Package unit provides small types for expressing transaction sizes and fee
// rates, so that size and fee arithmetic is explicit about its units.
package unit

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
)

// WeightUnit expresses a transaction size in weight units (wu). The tx weight
// is calculated using `Base tx size * 3 + Total tx size`.
//   - Base tx size is the size of the transaction serialized without the
//     witness data.
//   - Total tx size is the transaction size in bytes serialized according to
//     BIP144.
type WeightUnit uint64

// ToVB converts the weight to virtual bytes, rounding up as defined in
// BIP141 (one virtual byte is four weight units).
func (w WeightUnit) ToVB() VByte {
	return VByte(
		(uint64(w) + blockchain.WitnessScaleFactor - 1) /
			blockchain.WitnessScaleFactor,
	)
}

// String returns a human-readable string of the weight unit.
func (w WeightUnit) String() string {
	return fmt.Sprintf("%d wu", uint64(w))
}

// VByte expresses a transaction size in virtual bytes.
type VByte uint64

// String returns a human-readable string of the virtual byte.
func (v VByte) String() string {
	return fmt.Sprintf("%d vb", uint64(v))
}

package unit

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
)

// SatPerVByte represents a fee rate in sat/vbyte.
type SatPerVByte btcutil.Amount

// FeeForVSize calculates the fee resulting from this fee rate and the given
// size in virtual bytes.
func (s SatPerVByte) FeeForVSize(vb VByte) btcutil.Amount {
	return btcutil.Amount(s) * btcutil.Amount(vb)
}

// FeePerKWeight converts the current fee rate from sat/vb to sat/kw.
func (s SatPerVByte) FeePerKWeight() SatPerKWeight {
	return SatPerKWeight(s * 1000 / blockchain.WitnessScaleFactor)
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	return fmt.Sprintf("%v sat/vb", int64(s))
}

// SatPerKWeight represents a fee rate in sat/kw.
type SatPerKWeight btcutil.Amount

// FeeForWeight calculates the fee resulting from this fee rate and the given
// weight in weight units (wu). The resulting fee is rounded down.
func (s SatPerKWeight) FeeForWeight(wu WeightUnit) btcutil.Amount {
	return btcutil.Amount(s) * btcutil.Amount(wu) / 1000
}

// String returns a human-readable string of the fee rate.
func (s SatPerKWeight) String() string {
	return fmt.Sprintf("%v sat/kw", int64(s))
}

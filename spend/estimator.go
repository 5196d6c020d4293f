package spend

import (
	"strconv"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/delta1/liana/unit"
)

// changeOutputVBytes is the serialized size of the change output that the
// estimator always accounts for, whether or not the daemon ends up creating
// one. It is calculated as:
//
//   - 8 bytes output value
//   - 1 byte compact int encoding value 34
//   - 1 byte witness version
//   - 1 byte push opcode
//   - 32 bytes witness program
const changeOutputVBytes = unit.VByte(8 + 1 + 1 + 1 + 32)

// refreshAmountLeft recomputes the amount still needed to fund the draft at
// the requested fee rate. It must be called after every coin toggle and every
// feerate edit; the result is a decision aid for the user and never blocks
// generation by itself.
//
// The estimate is built from a template of the transaction to come: one
// placeholder input per selected coin and one output per currently valid
// recipient (an incomplete recipient must not distort the fee preview). Since
// no witness exists yet, the descriptor's worst-case satisfaction weight is
// added for each input, and a change output is conservatively assumed to
// always be produced.
func (d *DefineSpend) refreshAmountLeft() {
	// We need the feerate in order to compute the required amount to
	// select. An unset or unparsable feerate means "unknown", not "free".
	feerate, err := strconv.ParseUint(d.feerate.Value, 10, 64)
	if err != nil {
		d.amountLeftToSelect = fn.None[btcutil.Amount]()
		return
	}

	template := wire.NewMsgTx(2)

	var selected btcutil.Amount
	for _, entry := range d.coins {
		if !entry.Selected {
			continue
		}

		template.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))
		selected += entry.Coin.Amount
	}

	var outputSum btcutil.Amount
	for i := range d.recipients {
		recipient := &d.recipients[i]
		if !recipient.valid() {
			continue
		}

		// A valid recipient parsed moments ago; failing to parse it
		// again is an invariant break between validation and use, not
		// a user error.
		addr, err := btcutil.DecodeAddress(
			recipient.Address.Value, d.params,
		)
		if err != nil {
			log.Errorf("Valid recipient address %q failed to "+
				"re-parse: %v", recipient.Address.Value, err)
			continue
		}

		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			log.Errorf("Valid recipient address %q has no "+
				"script: %v", recipient.Address.Value, err)
			continue
		}

		amount, err := recipient.AmountSats(d.params)
		if err != nil {
			log.Errorf("Valid recipient amount %q failed to "+
				"re-parse: %v", recipient.Amount.Value, err)
			continue
		}

		template.AddTxOut(wire.NewTxOut(int64(amount), pkScript))
		outputSum += amount
	}

	// The template carries no witness data, so its virtual size reflects
	// only the skeleton of the transaction. Each input will additionally
	// pay the descriptor's worst-case satisfaction cost once signed, and
	// the daemon may append a change output.
	vsize := unit.WeightUnit(blockchain.GetTransactionWeight(
		btcutil.NewTx(template),
	)).ToVB()

	satisfactionVB := unit.VByte(d.descriptor.MaxSatisfactionWeight() /
		blockchain.WitnessScaleFactor)

	totalVB := vsize + satisfactionVB*unit.VByte(len(template.TxIn)) +
		changeOutputVBytes

	needed := unit.SatPerVByte(feerate).FeeForVSize(totalVB) + outputSum

	// Saturating subtraction: an over-funded selection means nothing is
	// left to select, it is not an error.
	left := needed - selected
	if left < 0 {
		left = 0
	}

	d.amountLeftToSelect = fn.Some(left)
}

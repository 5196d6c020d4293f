package spend

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// DustOutputSats is the fixed floor below which no output may be created,
// regardless of its script type. It is deliberately far above the relay-level
// dust thresholds so that outputs stay economical to spend.
const DustOutputSats = btcutil.Amount(5_000)

var (
	// ErrAmountEmpty is returned when the amount field has not been filled
	// in yet.
	ErrAmountEmpty = errors.New("amount is empty")

	// ErrAmountParse is returned when the amount field cannot be parsed as
	// a non-negative decimal in whole-coin units.
	ErrAmountParse = errors.New("cannot parse output amount")

	// ErrAmountBelowDustLimit is returned when the amount is zero or below
	// the fixed DustOutputSats floor.
	ErrAmountBelowDustLimit = errors.New(
		"amount must be above the dust limit",
	)

	// ErrAmountBelowScriptDust is returned when the amount does not
	// strictly exceed the dust value of the destination script.
	ErrAmountBelowScriptDust = errors.New(
		"amount must be superior to the script dust value",
	)
)

// FormValue is a raw text field paired with its derived validity. Validation
// is recomputed eagerly on every edit so that downstream consumers (the fee
// estimator, the aggregate validity check) never observe a stale judgement.
// An empty field with Valid unset is "not yet judged", not invalid.
type FormValue struct {
	// Value is the raw text as typed by the user.
	Value string

	// Valid reports whether Value passed validation on its last edit. An
	// empty Value is marked valid when the user clears the field, so the
	// error indicator disappears rather than nagging about emptiness.
	Valid bool
}

// Recipient is a single destination line of the spend being drafted: an
// address and an amount, both carried as form values with inline validity.
type Recipient struct {
	// Address is the destination address field.
	Address FormValue

	// Amount is the amount field, denominated in whole coins (e.g.
	// "0.001").
	Amount FormValue

	// Duplicate is set when an earlier recipient already uses the same
	// non-empty address. Only later occurrences are ever flagged.
	Duplicate bool
}

// AmountSats parses and validates the recipient's amount field, returning the
// value in satoshis.
//
// The checks are applied in order: the field must be non-empty, must parse as
// a non-negative decimal in whole-coin units, must be at least the fixed
// DustOutputSats floor, and, whenever the address field currently parses for
// the given network, must strictly exceed that script's dust value.
func (r *Recipient) AmountSats(params *chaincfg.Params) (btcutil.Amount,
	error) {

	if r.Amount.Value == "" {
		return 0, ErrAmountEmpty
	}

	coins, err := strconv.ParseFloat(r.Amount.Value, 64)
	if err != nil || coins < 0 {
		return 0, fmt.Errorf("%w: %q", ErrAmountParse, r.Amount.Value)
	}

	amount, err := btcutil.NewAmount(coins)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAmountParse, r.Amount.Value)
	}

	if amount == 0 || amount < DustOutputSats {
		return 0, ErrAmountBelowDustLimit
	}

	// If the address field holds a valid address, the amount must also
	// clear the dust value of that particular script type. Editing the
	// address can therefore flip an amount from valid to invalid and back.
	addr, err := btcutil.DecodeAddress(r.Address.Value, params)
	if err == nil {
		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return 0, fmt.Errorf("unable to build script for "+
				"%s: %w", r.Address.Value, err)
		}

		if amount <= scriptDustThreshold(pkScript) {
			return 0, ErrAmountBelowScriptDust
		}
	}

	return amount, nil
}

// valid reports whether both fields are filled in and individually valid.
func (r *Recipient) valid() bool {
	return r.Address.Value != "" && r.Address.Valid &&
		r.Amount.Value != "" && r.Amount.Valid
}

// updateAddress applies an edit of the address field and re-judges both
// fields. An amount already present is re-validated because the script dust
// rule depends on the address.
func (r *Recipient) updateAddress(params *chaincfg.Params, value string) {
	r.Address.Value = value

	addr, err := btcutil.DecodeAddress(value, params)
	switch {
	case err == nil:
		// DecodeAddress already rejects addresses encoded for another
		// network, IsForNet guards the address types that slip
		// through with only a format check.
		r.Address.Valid = addr.IsForNet(params)

		if r.Amount.Value != "" {
			_, amountErr := r.AmountSats(params)
			r.Amount.Valid = amountErr == nil
		}

	case value == "":
		// Make the error disappear if we deleted the invalid address.
		r.Address.Valid = true

	default:
		r.Address.Valid = false
	}
}

// updateAmount applies an edit of the amount field and re-judges it.
func (r *Recipient) updateAmount(params *chaincfg.Params, value string) {
	r.Amount.Value = value

	if value == "" {
		// Make the error disappear if we deleted the invalid amount.
		r.Amount.Valid = true
		return
	}

	_, err := r.AmountSats(params)
	r.Amount.Valid = err == nil
}

// scriptDustThreshold returns the dust value of the given output script: the
// value at or below which an output is uneconomical to spend later. The
// computation follows Bitcoin Core's GetDustThreshold at the default dust
// relay fee of 3 sat/vb: three times the cost of creating and later spending
// the output, with witness programs receiving the segwit input discount.
// Provably unspendable scripts carry no dust value since they can never be
// spent anyway.
func scriptDustThreshold(pkScript []byte) btcutil.Amount {
	if txscript.IsUnspendable(pkScript) {
		return 0
	}

	// 9 = 8 bytes output value + 1 byte script length.
	spendCost := len(pkScript) + 9
	if txscript.IsWitnessProgram(pkScript) {
		// 67 = 32 txid + 4 vout + 1 script length + 4 sequence + the
		// discounted witness stack (107 wu / 4, rounded up).
		spendCost += 67
	} else {
		// 148 = 32 txid + 4 vout + 1 script length + 107 scriptSig +
		// 4 sequence.
		spendCost += 148
	}

	return btcutil.Amount(3 * spendCost)
}

// Package spend implements the construction of a spending transaction draft:
// recipient validation against dust rules, selection of the coins funding the
// transaction, estimation of the fee required to reach a target feerate
// before the transaction exists, and the handoff of the generated unsigned
// transaction to the signing stage.
//
// All draft state is mutated from a single logical thread: edits are applied
// synchronously through ApplyEdit and the only suspending operation is
// Generate, whose result must be fed back through FinishGenerate on the same
// logical thread that drives the edits.
package spend

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/delta1/liana/daemon"
)

var (
	// ErrDraftInvalid is returned when generation is requested while the
	// aggregate validity check does not pass. The presentation layer is
	// expected to guard against this, so hitting it indicates a caller
	// bug rather than a user error.
	ErrDraftInvalid = errors.New("spend draft is not valid")

	// ErrInvariantViolated is returned when a field that passed
	// validation fails to re-parse at generation time. This indicates an
	// invariant break between validation and use; it is never silently
	// papered over, since e.g. defaulting an unparsable feerate to zero
	// would produce an unconfirmable transaction.
	ErrInvariantViolated = errors.New("validated input failed to re-parse")
)

// Event is a sealed interface over the edits the presentation layer can apply
// to a spend draft. The sealed interface pattern provides compile-time
// safety, ensuring that only the intended edit types can be dispatched.
type Event interface {
	// isSpendEvent is a marker method that is part of the sealed
	// interface pattern. It is unexported, so it can only be implemented
	// by types within this package.
	isSpendEvent()
}

// AddRecipient appends a fresh, empty recipient line.
type AddRecipient struct{}

// DeleteRecipient removes the recipient at the given index.
type DeleteRecipient struct {
	Index int
}

// EditRecipientAddress replaces the address field of the recipient at the
// given index.
type EditRecipientAddress struct {
	Index int
	Value string
}

// EditRecipientAmount replaces the amount field of the recipient at the given
// index.
type EditRecipientAmount struct {
	Index int
	Value string
}

// EditFeerate replaces the feerate field, expressed as an integer number of
// sat/vb.
type EditFeerate struct {
	Value string
}

// ToggleCoin flips the selection flag of the coin entry at the given index.
type ToggleCoin struct {
	Index int
}

func (AddRecipient) isSpendEvent()         {}
func (DeleteRecipient) isSpendEvent()      {}
func (EditRecipientAddress) isSpendEvent() {}
func (EditRecipientAmount) isSpendEvent()  {}
func (EditFeerate) isSpendEvent()          {}
func (ToggleCoin) isSpendEvent()           {}

// A compile-time assertion to ensure that all edit types implement the Event
// interface.
var _ Event = AddRecipient{}
var _ Event = DeleteRecipient{}
var _ Event = EditRecipientAddress{}
var _ Event = EditRecipientAmount{}
var _ Event = EditFeerate{}
var _ Event = ToggleCoin{}

// Snapshot is the validation state of the draft after an edit, recomputed
// eagerly on every mutation so it is never stale.
type Snapshot struct {
	// IsValid reports whether the draft as a whole can be generated: the
	// feerate parses to a positive integer, at least one coin is
	// selected, every recipient is individually valid and no two
	// recipients share an address.
	IsValid bool

	// IsDuplicate reports whether two non-empty recipient addresses are
	// textually equal.
	IsDuplicate bool

	// BalanceAvailable is the informational sum of all spendable coins,
	// computed once at session start.
	BalanceAvailable btcutil.Amount

	// AmountLeftToSelect is the amount still needed to fund the draft at
	// the requested feerate. It is None whenever the feerate is unset or
	// unparsable.
	AmountLeftToSelect fn.Option[btcutil.Amount]

	// Warning carries the last construction failure, if any.
	Warning error
}

// GenerateResult is the construction service's response to a generate
// request.
type GenerateResult struct {
	// Psbt is the generated unsigned transaction. It is nil when Err is
	// set.
	Psbt *psbt.Packet

	// Err is the service's error, opaque to this package.
	Err error
}

// DefineSpend drives the drafting of a spending transaction. It owns the
// recipient list, the selectable coin set and the fee estimate, and
// recomputes the aggregate validity after every mutation.
type DefineSpend struct {
	descriptor Descriptor
	params     *chaincfg.Params
	timelock   uint16

	balanceAvailable   btcutil.Amount
	recipients         []Recipient
	coins              []CoinEntry
	feerate            FormValue
	amountLeftToSelect fn.Option[btcutil.Amount]

	isValid     bool
	isDuplicate bool

	generated *psbt.Packet
	warning   error
}

// NewDefineSpend starts a fresh draft session over the wallet's current coin
// list. Coins already consumed elsewhere are dropped, the rest are ordered by
// the maturity-first policy, and the session starts with exactly one empty
// recipient.
func NewDefineSpend(descriptor Descriptor, params *chaincfg.Params,
	coins []daemon.Coin, timelock uint16,
	currentHeight uint32) *DefineSpend {

	return &DefineSpend{
		descriptor:         descriptor,
		params:             params,
		timelock:           timelock,
		balanceAvailable:   balanceAvailable(coins),
		recipients:         []Recipient{{}},
		coins:              newCoinEntries(coins, currentHeight, timelock),
		amountLeftToSelect: fn.None[btcutil.Amount](),
	}
}

// ApplyEdit applies a single edit to the draft and returns the freshly
// recomputed validation snapshot.
func (d *DefineSpend) ApplyEdit(event Event) Snapshot {
	switch ev := event.(type) {
	case AddRecipient:
		d.recipients = append(d.recipients, Recipient{})

	case DeleteRecipient:
		if ev.Index < 0 || ev.Index >= len(d.recipients) {
			log.Warnf("Ignoring deletion of recipient %d of %d",
				ev.Index, len(d.recipients))
			break
		}

		d.recipients = append(
			d.recipients[:ev.Index], d.recipients[ev.Index+1:]...,
		)

	case EditRecipientAddress:
		if ev.Index < 0 || ev.Index >= len(d.recipients) {
			log.Warnf("Ignoring address edit of recipient %d of %d",
				ev.Index, len(d.recipients))
			break
		}

		d.recipients[ev.Index].updateAddress(d.params, ev.Value)

	case EditRecipientAmount:
		if ev.Index < 0 || ev.Index >= len(d.recipients) {
			log.Warnf("Ignoring amount edit of recipient %d of %d",
				ev.Index, len(d.recipients))
			break
		}

		d.recipients[ev.Index].updateAmount(d.params, ev.Value)

	case EditFeerate:
		d.applyFeerateEdit(ev.Value)

	case ToggleCoin:
		if ev.Index < 0 || ev.Index >= len(d.coins) {
			log.Warnf("Ignoring toggle of coin %d of %d",
				ev.Index, len(d.coins))
			break
		}

		d.coins[ev.Index].Selected = !d.coins[ev.Index].Selected
		d.refreshAmountLeft()

	default:
		log.Errorf("Unknown spend event type: %T", event)
	}

	d.checkValid()

	return d.snapshot()
}

// applyFeerateEdit applies an edit of the feerate field. The feerate must be
// a positive integer number of sat/vb; clearing the field clears its error
// rather than reporting emptiness as one.
func (d *DefineSpend) applyFeerateEdit(value string) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	switch {
	case err == nil:
		d.feerate.Value = value
		d.feerate.Valid = parsed != 0
		d.refreshAmountLeft()

	case value == "":
		d.feerate.Value = ""
		d.feerate.Valid = true
		d.amountLeftToSelect = fn.None[btcutil.Amount]()

	default:
		d.feerate.Valid = false
		d.amountLeftToSelect = fn.None[btcutil.Amount]()
	}

	d.warning = nil
}

// checkValid recomputes the aggregate validity and the duplicate flags. A
// recipient is flagged duplicate only when a strictly earlier recipient
// already uses its address; the first occurrence is never flagged.
func (d *DefineSpend) checkValid() {
	d.isValid = d.feerate.Valid && d.feerate.Value != ""
	d.isDuplicate = false

	selected := false
	for _, entry := range d.coins {
		if entry.Selected {
			selected = true
			break
		}
	}
	if !selected {
		d.isValid = false
	}

	for i := range d.recipients {
		recipient := &d.recipients[i]
		if !recipient.valid() {
			d.isValid = false
		}

		recipient.Duplicate = false
		if recipient.Address.Value == "" {
			continue
		}

		for j := 0; j < i; j++ {
			addr := d.recipients[j].Address.Value
			if addr == recipient.Address.Value {
				recipient.Duplicate = true
				d.isDuplicate = true
				break
			}
		}
	}

	if d.isDuplicate {
		d.isValid = false
	}
}

// snapshot returns the current validation state.
func (d *DefineSpend) snapshot() Snapshot {
	return Snapshot{
		IsValid:            d.isValid,
		IsDuplicate:        d.isDuplicate,
		BalanceAvailable:   d.balanceAvailable,
		AmountLeftToSelect: d.amountLeftToSelect,
		Warning:            d.warning,
	}
}

// Snapshot returns the current validation state without applying an edit.
func (d *DefineSpend) Snapshot() Snapshot {
	return d.snapshot()
}

// Recipients returns a copy of the current recipient list.
func (d *DefineSpend) Recipients() []Recipient {
	recipients := make([]Recipient, len(d.recipients))
	copy(recipients, d.recipients)

	return recipients
}

// Coins returns a copy of the selectable coin entries, in their session
// order.
func (d *DefineSpend) Coins() []CoinEntry {
	coins := make([]CoinEntry, len(d.coins))
	copy(coins, d.coins)

	return coins
}

// Feerate returns the feerate form value.
func (d *DefineSpend) Feerate() FormValue {
	return d.feerate
}

// Generate dispatches a construction request for the drafted transaction to
// the given service. The request is built from the outpoints of the selected
// coins, a mapping from each recipient's address to its amount and the parsed
// feerate. The caller does not block: the result arrives on the returned
// channel and must be applied through FinishGenerate on the logical thread
// driving the edits.
//
// The core does not deduplicate in-flight requests and has no cancellation
// mechanism beyond the passed context; issuing a second request before the
// first resolves is the presentation layer's mistake to prevent.
func (d *DefineSpend) Generate(ctx context.Context,
	service daemon.Daemon) (<-chan GenerateResult, error) {

	// Generation is only ever requested once the aggregate validity check
	// passes.
	if !d.isValid {
		return nil, ErrDraftInvalid
	}

	inputs := make([]wire.OutPoint, 0, len(d.coins))
	for _, entry := range d.coins {
		if entry.Selected {
			inputs = append(inputs, entry.Coin.OutPoint)
		}
	}

	outputs := make(map[string]btcutil.Amount, len(d.recipients))
	for i := range d.recipients {
		recipient := &d.recipients[i]

		addr, err := btcutil.DecodeAddress(
			recipient.Address.Value, d.params,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: address %q: %v",
				ErrInvariantViolated,
				recipient.Address.Value, err)
		}

		amount, err := recipient.AmountSats(d.params)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q: %v",
				ErrInvariantViolated,
				recipient.Amount.Value, err)
		}

		// Recipient validation keeps every amount far above relay
		// dust, so the relay policy check can only fail on an
		// invariant break.
		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: address %q: %v",
				ErrInvariantViolated,
				recipient.Address.Value, err)
		}

		err = txrules.CheckOutput(
			&wire.TxOut{Value: int64(amount), PkScript: pkScript},
			txrules.DefaultRelayFeePerKb,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: output to %q: %v",
				ErrInvariantViolated,
				recipient.Address.Value, err)
		}

		outputs[addr.EncodeAddress()] = amount
	}

	feerate, err := strconv.ParseUint(d.feerate.Value, 10, 64)
	if err != nil || feerate == 0 {
		return nil, fmt.Errorf("%w: feerate %q", ErrInvariantViolated,
			d.feerate.Value)
	}

	d.warning = nil

	log.Debugf("Requesting spend transaction: %d inputs at %d sat/vb, "+
		"outputs: %v", len(inputs), feerate,
		newLogClosure(func() string {
			return spew.Sdump(outputs)
		}))

	resultChan := make(chan GenerateResult, 1)
	go func() {
		packet, err := service.CreateSpendTx(
			ctx, inputs, outputs, feerate,
		)
		resultChan <- GenerateResult{Psbt: packet, Err: err}
	}()

	return resultChan, nil
}

// FinishGenerate applies the construction service's response to the draft
// and reports whether the flow should advance to the next stage. On failure
// the error is surfaced as a warning and every prior edit is preserved
// untouched, so the user can retry without re-entering data.
func (d *DefineSpend) FinishGenerate(result GenerateResult) bool {
	if result.Err != nil {
		log.Warnf("Spend transaction construction failed: %v",
			result.Err)
		d.warning = result.Err

		return false
	}

	d.generated = result.Psbt
	d.warning = nil

	return true
}

// TransactionDraft is the immutable handoff between the construction stage
// and the signing stage: the coins chosen as inputs and the generated
// unsigned transaction. It is created empty by the flow and populated exactly
// once by Apply; regenerating requires returning to the construction stage.
type TransactionDraft struct {
	inputs    []daemon.Coin
	generated *psbt.Packet
}

// Inputs returns the coins selected as inputs at generation time.
func (t *TransactionDraft) Inputs() []daemon.Coin {
	return t.inputs
}

// Generated returns the generated unsigned transaction, or nil if none was
// produced yet.
func (t *TransactionDraft) Generated() *psbt.Packet {
	return t.generated
}

// Apply snapshots the currently selected coins and the last generated
// transaction into the draft. It must be called exactly once when leaving the
// construction stage forward.
func (d *DefineSpend) Apply(draft *TransactionDraft) {
	inputs := make([]daemon.Coin, 0, len(d.coins))
	for _, entry := range d.coins {
		if entry.Selected {
			inputs = append(inputs, entry.Coin)
		}
	}

	draft.inputs = inputs
	draft.generated = d.generated
}

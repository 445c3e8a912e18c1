// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pegvm

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
	"github.com/luxfi/log"

	"github.com/luxfi/pegvm/utils/units"
	"github.com/luxfi/pegvm/utils/wrappers"
	"github.com/luxfi/pegvm/vms/pegvm/envelope"
	"github.com/luxfi/pegvm/vms/pegvm/opcode"
	"github.com/luxfi/pegvm/vms/pegvm/payment"
	"github.com/luxfi/pegvm/vms/pegvm/runtime"
	"github.com/luxfi/pegvm/vms/pegvm/state"

	safemath "github.com/luxfi/pegvm/utils/math"
)

const signerNotSet = "Signer not set"

// executor carries one invocation. Its state writes land in a version
// database that the contract commits or aborts as a whole.
type executor struct {
	contract *Contract
	ctx      context.Context
	rc       *runtime.Context
	state    *state.State

	minted uint256.Int
	burned uint256.Int
	queued int
}

func (e *executor) dispatch(call opcode.Call) (*runtime.Response, error) {
	switch call.Op {
	case opcode.Initialize:
		return e.initialize(&call.Units)
	case opcode.SetSigner:
		return e.setSigner(call.Output)
	case opcode.Wrap:
		return e.wrap()
	case opcode.Unwrap:
		return e.unwrap(call.Output)
	case opcode.Name:
		return e.respond([]byte(e.contract.config.Name)), nil
	case opcode.SignerOrSymbol:
		if !e.rc.Caller.IsEOA() {
			return e.respond([]byte(e.contract.config.Symbol)), nil
		}
		script, err := e.state.SignerScript()
		if err != nil {
			return nil, err
		}
		addr, err := e.contract.signerAddress(script)
		if err != nil {
			return nil, err
		}
		return e.respond([]byte(addr)), nil
	case opcode.PendingPayments:
		payments, err := e.state.PendingPayments(e.rc.Height)
		if err != nil {
			return nil, err
		}
		return e.respond(payments), nil
	case opcode.Decimals:
		return e.respond([]byte{units.Decimals}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCall, call.Op)
	}
}

// respond forwards the incoming transfers with data attached.
func (e *executor) respond(data []byte) *runtime.Response {
	resp := runtime.Forward(e.rc.Incoming)
	resp.Data = data
	return resp
}

func (e *executor) initialize(supply *uint256.Int) (*runtime.Response, error) {
	initialized, err := e.state.IsInitialized()
	if err != nil {
		return nil, err
	}
	if initialized {
		return nil, ErrAlreadyInitialized
	}

	cfg := &e.contract.config
	factory := cfg.AuthTokenFactory.ID()
	deployed, err := e.contract.gateway.Call(
		e.ctx,
		factory,
		[]uint256.Int{{}, *supply},
		nil,
		min(e.rc.Fuel, cfg.AuthDeployFuel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy auth token via %s: %w", factory, err)
	}
	if len(deployed.Transfers) == 0 {
		return nil, fmt.Errorf("%w: auth token factory %s returned no token", ErrProtocolViolation, factory)
	}
	auth := deployed.Transfers[0]

	if err := e.state.SetAuthToken(auth.ID); err != nil {
		return nil, err
	}
	if err := e.state.MarkInitialized(); err != nil {
		return nil, err
	}

	e.contract.log.Info("initialized",
		log.Stringer("authToken", auth.ID),
		log.String("units", auth.Value.Dec()),
	)
	resp := runtime.Forward(e.rc.Incoming)
	resp.Transfers = append(resp.Transfers, auth)
	return resp, nil
}

// onlyOwner requires a non-zero transfer of the auth token into the call.
func (e *executor) onlyOwner() error {
	auth, ok, err := e.state.AuthToken()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: contract is not initialized", ErrAuthorization)
	}
	for _, t := range e.rc.Incoming {
		if t.ID == auth && !t.Value.IsZero() {
			return nil
		}
	}
	return fmt.Errorf("%w: auth token %s not supplied", ErrAuthorization, auth)
}

func (e *executor) setSigner(output uint32) (*runtime.Response, error) {
	if err := e.onlyOwner(); err != nil {
		return nil, err
	}
	tx, err := e.transaction()
	if err != nil {
		return nil, err
	}
	if _, err := e.contract.messagePointer(tx, e.rc.Vout, output); err != nil {
		return nil, err
	}
	out, err := txOut(tx, output)
	if err != nil {
		return nil, err
	}

	script := bytes.Clone(out.PkScript)
	if err := e.state.SetSignerScript(script); err != nil {
		return nil, err
	}

	e.contract.log.Info("signer set",
		log.String("script", hex.EncodeToString(script)),
		log.Stringer("txID", tx.TxHash()),
		log.Uint32("output", output),
	)
	return e.respond(script), nil
}

func (e *executor) wrap() (*runtime.Response, error) {
	signer, err := e.signer()
	if err != nil {
		return nil, err
	}
	tx, err := e.transaction()
	if err != nil {
		return nil, err
	}

	txID := tx.TxHash()
	if err := e.state.CheckAndMark(txID); err != nil {
		if errors.Is(err, state.ErrAlreadyProcessed) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, txID)
		}
		return nil, err
	}

	var payout uint256.Int
	for _, out := range tx.TxOut {
		if !bytes.Equal(out.PkScript, signer) {
			continue
		}
		if out.Value < 0 {
			return nil, fmt.Errorf("%w: negative output value", ErrProtocolViolation)
		}
		payout, err = safemath.AddU128(&payout, uint256.NewInt(uint64(out.Value)))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
		}
	}
	if err := e.adjustSupply(&payout, safemath.AddU128); err != nil {
		return nil, err
	}
	e.minted = payout

	e.contract.log.Info("wrapped",
		log.Stringer("txID", txID),
		log.String("amount", payout.Dec()),
	)
	resp := runtime.Forward(e.rc.Incoming)
	resp.Transfers = append(resp.Transfers, runtime.Transfer{
		ID:    e.rc.Myself,
		Value: payout,
	})
	return resp, nil
}

func (e *executor) unwrap(output uint32) (*runtime.Response, error) {
	if !e.rc.Caller.IsEOA() {
		return nil, fmt.Errorf("%w: unwrap must be called by an external account, not %s", ErrAuthorization, e.rc.Caller)
	}
	if len(e.rc.Incoming) != 1 {
		return nil, fmt.Errorf("%w: got %d transfers", ErrInvalidInputCount, len(e.rc.Incoming))
	}
	incoming := e.rc.Incoming[0]
	if incoming.ID != e.rc.Myself {
		return nil, fmt.Errorf("%w: got asset %s", ErrInvalidInputCount, incoming.ID)
	}

	signer, err := e.signer()
	if err != nil {
		return nil, err
	}
	tx, err := e.transaction()
	if err != nil {
		return nil, err
	}
	pointer, err := e.contract.messagePointer(tx, e.rc.Vout, output)
	if err != nil {
		return nil, err
	}
	spendable, err := txOut(tx, output)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(spendable.PkScript, signer) {
		return nil, fmt.Errorf("%w: output %d", ErrSignerMismatch, output)
	}

	amount, err := safemath.ToUint64(&incoming.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: burn of %s: %w", ErrArithmeticOverflow, incoming.Value.Dec(), err)
	}
	txID := tx.TxHash()
	record, err := payment.New(
		*wire.NewOutPoint(&txID, output),
		tx.TxOut[pointer].PkScript,
		amount,
	)
	switch {
	case errors.Is(err, payment.ErrScriptTooLarge):
		return nil, fmt.Errorf("%w: pointer output %d: %w", ErrProtocolViolation, pointer, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
	}
	if err := e.state.AppendPayment(e.rc.Height, record); err != nil {
		return nil, err
	}
	if err := e.adjustSupply(&incoming.Value, safemath.SubU128); err != nil {
		return nil, err
	}
	e.burned = incoming.Value
	e.queued++

	e.contract.log.Info("unwrapped",
		log.Stringer("txID", txID),
		log.Uint64("amount", amount),
		log.Uint64("height", e.rc.Height),
		log.String("recipient", hex.EncodeToString(record.Output.PkScript)),
	)

	p := wrappers.Packer{MaxSize: wrappers.LongLen}
	p.PackLong(amount)
	return &runtime.Response{Data: p.Bytes}, nil
}

// signer returns the configured signer script or ErrSignerNotConfigured.
func (e *executor) signer() ([]byte, error) {
	signer, err := e.state.SignerScript()
	if err != nil {
		return nil, err
	}
	if len(signer) == 0 {
		return nil, ErrSignerNotConfigured
	}
	return signer, nil
}

func (e *executor) transaction() (*wire.MsgTx, error) {
	tx, err := envelope.ParseTx(e.rc.Transaction)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	return tx, nil
}

func (e *executor) adjustSupply(amount *uint256.Int, op func(a, b *uint256.Int) (uint256.Int, error)) error {
	supply, err := e.state.TotalSupply()
	if err != nil {
		return err
	}
	supply, err = op(&supply, amount)
	if err != nil {
		return fmt.Errorf("%w: total supply: %w", ErrArithmeticOverflow, err)
	}
	return e.state.SetTotalSupply(&supply)
}

func txOut(tx *wire.MsgTx, index uint32) (*wire.TxOut, error) {
	if uint64(index) >= uint64(len(tx.TxOut)) {
		return nil, fmt.Errorf("%w: output %d of %d", ErrProtocolViolation, index, len(tx.TxOut))
	}
	return tx.TxOut[index], nil
}

func (c *Contract) signerAddress(script []byte) (string, error) {
	if len(script) == 0 {
		return signerNotSet, nil
	}
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, c.params)
	if err != nil || len(addrs) != 1 {
		return "", fmt.Errorf("%w: invalid script %x", ErrProtocolViolation, script)
	}
	return addrs[0].EncodeAddress(), nil
}

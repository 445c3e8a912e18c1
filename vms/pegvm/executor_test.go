// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pegvm

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/pegvm/vms/pegvm/config"
	"github.com/luxfi/pegvm/vms/pegvm/envelope"
	"github.com/luxfi/pegvm/vms/pegvm/opcode"
	"github.com/luxfi/pegvm/vms/pegvm/payment"
	"github.com/luxfi/pegvm/vms/pegvm/runtime"
)

func TestInitialize(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.initialize(t)

	// The factory is not called again.
	_, err := env.call(t, runtime.Context{}, opcode.Call{Op: opcode.Initialize, Units: *uint256.NewInt(1)})
	require.ErrorIs(err, ErrAlreadyInitialized)
}

func TestInitializeRollsBackOnGatewayFailure(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.gateway.EXPECT().
		Call(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, runtime.ErrOutOfFuel)

	_, err := env.call(t, runtime.Context{}, opcode.Call{Op: opcode.Initialize, Units: *uint256.NewInt(1)})
	require.ErrorIs(err, runtime.ErrOutOfFuel)

	initialized, err := env.contract.readState().IsInitialized()
	require.NoError(err)
	require.False(initialized)

	env.initialize(t)
}

func TestInitializeFuelBudget(t *testing.T) {
	deployFuel := config.DefaultConfig().AuthDeployFuel
	tests := []struct {
		name         string
		fuel         uint64
		expectedFuel uint64
	}{
		{
			name:         "invocation budget below configured fuel",
			fuel:         10,
			expectedFuel: 10,
		},
		{
			name:         "invocation budget above configured fuel",
			fuel:         2 * deployFuel,
			expectedFuel: deployFuel,
		},
		{
			name:         "no budget left",
			fuel:         0,
			expectedFuel: 0,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			env := newTestEnv(t)
			env.gateway.EXPECT().
				Call(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), test.expectedFuel).
				Return(&runtime.Response{
					Transfers: []runtime.Transfer{runtime.NewTransfer(authToken, 1)},
				}, nil)

			_, err := env.call(t, runtime.Context{Fuel: test.fuel}, opcode.Call{Op: opcode.Initialize, Units: *uint256.NewInt(1)})
			require.NoError(err)
		})
	}
}

func TestInitializeWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.EXPECT().
		Call(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&runtime.Response{}, nil)

	_, err := env.call(t, runtime.Context{}, opcode.Call{Op: opcode.Initialize, Units: *uint256.NewInt(1)})
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestSetSignerRequiresOwner(t *testing.T) {
	tx := newTx(
		[]*wire.TxOut{
			wire.NewTxOut(546, otherScript),
			wire.NewTxOut(546, recipientScript),
		},
		pointerStone(1),
	)

	tests := []struct {
		name        string
		initialize  bool
		incoming    []runtime.Transfer
		expectedErr error
	}{
		{
			name:        "not initialized",
			incoming:    []runtime.Transfer{runtime.NewTransfer(authToken, 1)},
			expectedErr: ErrAuthorization,
		},
		{
			name:        "no auth token",
			initialize:  true,
			expectedErr: ErrAuthorization,
		},
		{
			name:        "zero auth token",
			initialize:  true,
			incoming:    []runtime.Transfer{runtime.NewTransfer(authToken, 0)},
			expectedErr: ErrAuthorization,
		},
		{
			name:        "wrong token",
			initialize:  true,
			incoming:    []runtime.Transfer{runtime.NewTransfer(otherApp, 1)},
			expectedErr: ErrAuthorization,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			env := newTestEnv(t)
			if test.initialize {
				env.initialize(t)
				env.setSigner(t, signerScript)
			}

			_, err := env.call(t, runtime.Context{
				Vout:        firstStoneVout(tx),
				Transaction: serialize(t, tx),
				Incoming:    test.incoming,
			}, opcode.Call{Op: opcode.SetSigner, Output: 0})
			require.ErrorIs(err, test.expectedErr)

			script, err := env.contract.SignerScript()
			require.NoError(err)
			if test.initialize {
				require.Equal(signerScript, script)
			} else {
				require.Empty(script)
			}
		})
	}
}

func TestSetSignerRotates(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)
	env.setSigner(t, otherScript)

	script, err := env.contract.SignerScript()
	require.NoError(err)
	require.Equal(otherScript, script)
}

func TestSetSignerValidatesMessage(t *testing.T) {
	outs := []*wire.TxOut{
		wire.NewTxOut(546, signerScript),
		wire.NewTxOut(546, otherScript),
	}
	edict := envelope.Edict{Block: *uint256.NewInt(2), Tx: *uint256.NewInt(1), Amount: *uint256.NewInt(1)}

	tests := []struct {
		name        string
		stone       envelope.Protostone
		output      uint32
		expectedErr error
	}{
		{
			name:        "edicts",
			stone:       envelope.Protostone{ProtocolTag: *uint256.NewInt(1), Pointer: ptr(1), Edicts: []envelope.Edict{edict}},
			expectedErr: ErrEdictsNotAllowed,
		},
		{
			name:        "missing pointer",
			stone:       envelope.Protostone{ProtocolTag: *uint256.NewInt(1)},
			expectedErr: ErrMissingPointer,
		},
		{
			name:        "pointer at protostone",
			stone:       pointerStone(3),
			expectedErr: ErrPointerOutOfRange,
		},
		{
			name:        "pointer at signer output",
			stone:       pointerStone(0),
			expectedErr: ErrSelfReferencingPointer,
		},
		{
			name:        "output past end",
			stone:       pointerStone(1),
			output:      7,
			expectedErr: ErrProtocolViolation,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			env := newTestEnv(t)
			env.initialize(t)

			tx := newTx(outs, test.stone)
			_, err := env.call(t, runtime.Context{
				Vout:        firstStoneVout(tx),
				Transaction: serialize(t, tx),
				Incoming:    []runtime.Transfer{runtime.NewTransfer(authToken, 1)},
			}, opcode.Call{Op: opcode.SetSigner, Output: test.output})
			require.ErrorIs(err, ErrProtocolViolation)
			require.ErrorIs(err, test.expectedErr)

			script, err := env.contract.SignerScript()
			require.NoError(err)
			require.Empty(script)
		})
	}
}

func ptr(v uint32) *uint32 {
	return &v
}

func TestWrap(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)

	tx := newTx([]*wire.TxOut{
		wire.NewTxOut(500, signerScript),
		wire.NewTxOut(300, otherScript),
		wire.NewTxOut(20, signerScript),
	})
	incoming := []runtime.Transfer{runtime.NewTransfer(otherApp, 3)}
	resp, err := env.call(t, runtime.Context{
		Transaction: serialize(t, tx),
		Incoming:    incoming,
	}, opcode.Call{Op: opcode.Wrap})
	require.NoError(err)
	require.Equal([]runtime.Transfer{
		runtime.NewTransfer(otherApp, 3),
		runtime.NewTransfer(myself, 520),
	}, resp.Transfers)
	require.Equal(uint64(520), env.supply(t))

	_, err = env.wrap(t, tx)
	require.ErrorIs(err, ErrAlreadyProcessed)
	require.Equal(uint64(520), env.supply(t))
}

func TestWrapNothingToSigner(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)

	tx := newTx([]*wire.TxOut{wire.NewTxOut(300, otherScript)})
	resp, err := env.wrap(t, tx)
	require.NoError(err)
	require.Equal([]runtime.Transfer{runtime.NewTransfer(myself, 0)}, resp.Transfers)
	require.Zero(env.supply(t))

	_, err = env.wrap(t, tx)
	require.ErrorIs(err, ErrAlreadyProcessed)
}

func TestWrapWithoutSigner(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	tx := newTx([]*wire.TxOut{wire.NewTxOut(500, nil)})
	_, err := env.wrap(t, tx)
	require.ErrorIs(err, ErrSignerNotConfigured)

	// The failed wrap did not mark the transaction.
	seen, err := env.contract.readState().IsProcessed(tx.TxHash())
	require.NoError(err)
	require.False(seen)
}

func TestWrapRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)

	_, err := env.call(t, runtime.Context{
		Transaction: []byte{0x01, 0x02},
	}, opcode.Call{Op: opcode.Wrap})
	require.ErrorIs(t, err, ErrProtocolViolation)
	require.ErrorIs(t, err, envelope.ErrInvalidTx)
}

func TestLegacyWrap(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)

	tx := newTx([]*wire.TxOut{wire.NewTxOut(42, signerScript)})
	resp, err := env.contract.Execute(context.Background(), &runtime.Context{
		Myself:      myself,
		Inputs:      []uint256.Int{*uint256.NewInt(77)},
		Transaction: serialize(t, tx),
	})
	require.NoError(err)
	require.Equal([]runtime.Transfer{runtime.NewTransfer(myself, 42)}, resp.Transfers)
}

// unwrapTx pays the signer at output 1 and the recipient at output 2 and
// carries a protostone pointing at the recipient.
func unwrapTx(stone envelope.Protostone) *wire.MsgTx {
	return newTx(
		[]*wire.TxOut{
			wire.NewTxOut(10_000, otherScript),
			wire.NewTxOut(546, signerScript),
			wire.NewTxOut(546, recipientScript),
		},
		stone,
	)
}

func (env *testEnv) unwrap(t *testing.T, tx *wire.MsgTx, output uint32, incoming ...runtime.Transfer) (*runtime.Response, error) {
	t.Helper()

	return env.call(t, runtime.Context{
		Vout:        firstStoneVout(tx),
		Transaction: serialize(t, tx),
		Incoming:    incoming,
	}, opcode.Call{Op: opcode.Unwrap, Output: output})
}

func TestWrapThenUnwrap(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)

	deposit := newTx([]*wire.TxOut{
		wire.NewTxOut(500, signerScript),
		wire.NewTxOut(300, otherScript),
	})
	resp, err := env.wrap(t, deposit)
	require.NoError(err)
	require.Equal([]runtime.Transfer{runtime.NewTransfer(myself, 500)}, resp.Transfers)

	burn := unwrapTx(pointerStone(2))
	resp, err = env.unwrap(t, burn, 1, runtime.NewTransfer(myself, 500))
	require.NoError(err)
	require.Empty(resp.Transfers)
	require.Equal(uint64(500), binary.LittleEndian.Uint64(resp.Data))
	require.Zero(env.supply(t))

	raw, err := env.contract.PendingPayments(testHeight)
	require.NoError(err)
	records, err := payment.ParseAll(raw)
	require.NoError(err)
	require.Len(records, 1)
	require.Equal(recipientScript, records[0].Output.PkScript)
	require.Equal(uint64(500), records[0].Amount())
	require.Equal(burn.TxHash(), records[0].Spendable.Hash)
	require.Equal(uint32(1), records[0].Spendable.Index)

	require.Equal(float64(500), testutil.ToFloat64(env.contract.metrics.minted))
	require.Equal(float64(500), testutil.ToFloat64(env.contract.metrics.burned))
	require.Equal(float64(1), testutil.ToFloat64(env.contract.metrics.payments))
	require.Equal(2, testutil.CollectAndCount(env.registry, "pegvm_payout_count", "pegvm_payout_sum"))
}

func TestUnwrapQueuesInCallOrder(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)
	_, err := env.wrap(t, newTx([]*wire.TxOut{wire.NewTxOut(1_000, signerScript)}))
	require.NoError(err)

	first := unwrapTx(pointerStone(2))
	second := unwrapTx(pointerStone(0))
	_, err = env.unwrap(t, first, 1, runtime.NewTransfer(myself, 300))
	require.NoError(err)
	_, err = env.unwrap(t, second, 1, runtime.NewTransfer(myself, 200))
	require.NoError(err)

	raw, err := env.contract.PendingPayments(testHeight)
	require.NoError(err)
	records, err := payment.ParseAll(raw)
	require.NoError(err)
	require.Len(records, 2)
	require.Equal(recipientScript, records[0].Output.PkScript)
	require.Equal(uint64(300), records[0].Amount())
	require.Equal(otherScript, records[1].Output.PkScript)
	require.Equal(uint64(200), records[1].Amount())
	require.Equal(raw, payment.Concat(records))

	resp, err := env.call(t, runtime.Context{}, opcode.Call{Op: opcode.PendingPayments})
	require.NoError(err)
	require.Equal(raw, resp.Data)

	resp, err = env.contract.Execute(context.Background(), &runtime.Context{
		Myself: myself,
		Height: testHeight,
		Inputs: []uint256.Int{*uint256.NewInt(1001)},
	})
	require.NoError(err)
	require.Equal(raw, resp.Data)

	resp, err = env.call(t, runtime.Context{Height: testHeight + 1}, opcode.Call{Op: opcode.PendingPayments})
	require.NoError(err)
	require.Empty(resp.Data)
}

func TestUnwrapRejections(t *testing.T) {
	edict := envelope.Edict{Block: *uint256.NewInt(2), Tx: *uint256.NewInt(1), Amount: *uint256.NewInt(1)}

	tests := []struct {
		name        string
		caller      runtime.ContractID
		tx          *wire.MsgTx
		vout        uint32
		output      uint32
		incoming    []runtime.Transfer
		expectedErr error
	}{
		{
			name:        "contract caller",
			caller:      otherApp,
			tx:          unwrapTx(pointerStone(2)),
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: ErrAuthorization,
		},
		{
			name:        "no input",
			tx:          unwrapTx(pointerStone(2)),
			output:      1,
			expectedErr: ErrInvalidInputCount,
		},
		{
			name:   "two inputs",
			tx:     unwrapTx(pointerStone(2)),
			output: 1,
			incoming: []runtime.Transfer{
				runtime.NewTransfer(myself, 50),
				runtime.NewTransfer(myself, 50),
			},
			expectedErr: ErrInvalidInputCount,
		},
		{
			name:        "other asset",
			tx:          unwrapTx(pointerStone(2)),
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(otherApp, 100)},
			expectedErr: ErrInvalidInputCount,
		},
		{
			name:        "pointer equals candidate",
			tx:          unwrapTx(pointerStone(1)),
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: ErrSelfReferencingPointer,
		},
		{
			name:        "pointer past outputs",
			tx:          unwrapTx(pointerStone(4)),
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: ErrPointerOutOfRange,
		},
		{
			name:        "edicts",
			tx:          unwrapTx(envelope.Protostone{ProtocolTag: *uint256.NewInt(1), Pointer: ptr(2), Edicts: []envelope.Edict{edict}}),
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: ErrEdictsNotAllowed,
		},
		{
			name:        "missing pointer",
			tx:          unwrapTx(envelope.Protostone{ProtocolTag: *uint256.NewInt(1)}),
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: ErrMissingPointer,
		},
		{
			name:        "candidate does not pay signer",
			tx:          unwrapTx(pointerStone(2)),
			output:      0,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: ErrSignerMismatch,
		},
		{
			name:        "vout addresses a real output",
			tx:          unwrapTx(pointerStone(2)),
			vout:        2,
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: envelope.ErrMessageNotFound,
		},
		{
			name:        "vout past the protostones",
			tx:          unwrapTx(pointerStone(2)),
			vout:        9,
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: envelope.ErrMessageNotFound,
		},
		{
			name:        "no runestone",
			tx:          newTx([]*wire.TxOut{wire.NewTxOut(546, signerScript), wire.NewTxOut(546, recipientScript)}),
			vout:        3,
			output:      0,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 100)},
			expectedErr: envelope.ErrNoEmbeddedProtocol,
		},
		{
			name:        "burn exceeds supply",
			tx:          unwrapTx(pointerStone(2)),
			output:      1,
			incoming:    []runtime.Transfer{runtime.NewTransfer(myself, 1_001)},
			expectedErr: ErrArithmeticOverflow,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			env := newTestEnv(t)
			env.initialize(t)
			env.setSigner(t, signerScript)
			_, err := env.wrap(t, newTx([]*wire.TxOut{wire.NewTxOut(1_000, signerScript)}))
			require.NoError(err)

			vout := test.vout
			if vout == 0 {
				vout = firstStoneVout(test.tx)
			}
			_, err = env.call(t, runtime.Context{
				Caller:      test.caller,
				Vout:        vout,
				Transaction: serialize(t, test.tx),
				Incoming:    test.incoming,
			}, opcode.Call{Op: opcode.Unwrap, Output: test.output})
			require.ErrorIs(err, test.expectedErr)

			raw, err := env.contract.PendingPayments(testHeight)
			require.NoError(err)
			require.Empty(raw)
			require.Equal(uint64(1_000), env.supply(t))
		})
	}
}

func TestUnwrapWithoutSigner(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.unwrap(t, unwrapTx(pointerStone(2)), 1, runtime.NewTransfer(myself, 1))
	require.ErrorIs(t, err, ErrSignerNotConfigured)
}

func TestUnwrapOversizedDestination(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)
	_, err := env.wrap(t, newTx([]*wire.TxOut{wire.NewTxOut(1000, signerScript)}))
	require.NoError(err)

	// A redemption queued earlier at the same height stays decodable.
	_, err = env.unwrap(t, unwrapTx(pointerStone(2)), 1, runtime.NewTransfer(myself, 300))
	require.NoError(err)

	oversized := bytes.Repeat([]byte{txscript.OP_TRUE}, payment.MaxScriptLen+1)
	burn := newTx(
		[]*wire.TxOut{
			wire.NewTxOut(546, signerScript),
			wire.NewTxOut(546, oversized),
		},
		pointerStone(1),
	)
	_, err = env.unwrap(t, burn, 0, runtime.NewTransfer(myself, 200))
	require.ErrorIs(err, ErrProtocolViolation)
	require.ErrorIs(err, payment.ErrScriptTooLarge)
	require.Equal(uint64(700), env.supply(t))

	raw, err := env.contract.PendingPayments(testHeight)
	require.NoError(err)
	records, err := payment.ParseAll(raw)
	require.NoError(err)
	require.Len(records, 1)
	require.Equal(uint64(300), records[0].Amount())
}

func TestUnwrapBurnTooWide(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, signerScript)

	wide := runtime.Transfer{
		ID:    myself,
		Value: *new(uint256.Int).Lsh(uint256.NewInt(1), 64),
	}
	_, err := env.unwrap(t, unwrapTx(pointerStone(2)), 1, wide)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestMetadata(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	incoming := []runtime.Transfer{runtime.NewTransfer(otherApp, 1)}

	resp, err := env.call(t, runtime.Context{Incoming: incoming}, opcode.Call{Op: opcode.Name})
	require.NoError(err)
	require.Equal([]byte("SUBFROST BTC"), resp.Data)
	require.Equal(incoming, resp.Transfers)

	resp, err = env.call(t, runtime.Context{Caller: otherApp}, opcode.Call{Op: opcode.SignerOrSymbol})
	require.NoError(err)
	require.Equal([]byte("frBTC"), resp.Data)

	resp, err = env.call(t, runtime.Context{}, opcode.Call{Op: opcode.Decimals})
	require.NoError(err)
	require.Equal([]byte{8}, resp.Data)
}

func TestGetSigner(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	resp, err := env.call(t, runtime.Context{}, opcode.Call{Op: opcode.SignerOrSymbol})
	require.NoError(err)
	require.Equal([]byte("Signer not set"), resp.Data)

	env.initialize(t)
	env.setSigner(t, signerScript)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(signerScript[2:], &chaincfg.RegressionNetParams)
	require.NoError(err)

	resp, err = env.call(t, runtime.Context{}, opcode.Call{Op: opcode.SignerOrSymbol})
	require.NoError(err)
	require.Equal([]byte(addr.EncodeAddress()), resp.Data)

	got, err := env.contract.SignerAddress()
	require.NoError(err)
	require.Equal(addr.EncodeAddress(), got)
}

func TestGetSignerNonStandard(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)
	env.setSigner(t, []byte{0x51, 0x51, 0x87})

	_, err := env.call(t, runtime.Context{}, opcode.Call{Op: opcode.SignerOrSymbol})
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestRejectionMetrics(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	_, err := env.wrap(t, newTx([]*wire.TxOut{wire.NewTxOut(1, signerScript)}))
	require.ErrorIs(err, ErrSignerNotConfigured)

	require.Equal(float64(1), testutil.ToFloat64(env.contract.metrics.rejections.WithLabelValues("wrap")))
	require.Zero(testutil.ToFloat64(env.contract.metrics.invocations.WithLabelValues("wrap")))
}

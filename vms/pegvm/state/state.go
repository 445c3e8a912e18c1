// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state holds the persistent state of the peg contract: the signer
// script, the set of settled transactions, the pending payment queue and
// the token bookkeeping.
package state

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/holiman/uint256"

	"github.com/luxfi/pegvm/utils/wrappers"
	"github.com/luxfi/pegvm/vms/pegvm/payment"
	"github.com/luxfi/pegvm/vms/pegvm/runtime"
)

var (
	ErrAlreadyProcessed = errors.New("transaction already processed")
	ErrCorrupted        = errors.New("state corrupted")

	signerKey      = []byte("/signer")
	seenPrefix     = []byte("/seen/")
	paymentsPrefix = []byte("/payments/byheight/")
	initializedKey = []byte("/initialized")
	authKey        = []byte("/auth")
	totalSupplyKey = []byte("/totalsupply")

	seenFlag = []byte{0x01}
)

// State reads and writes contract state through a Storage.
type State struct {
	storage Storage
}

func New(storage Storage) *State {
	return &State{storage: storage}
}

// SignerScript returns the custodial script. It is empty until first set.
func (s *State) SignerScript() ([]byte, error) {
	return s.storage.Get(signerKey)
}

// SetSignerScript replaces the custodial script.
func (s *State) SetSignerScript(script []byte) error {
	return s.storage.Set(signerKey, script)
}

// IsProcessed reports whether txID has been settled.
func (s *State) IsProcessed(txID chainhash.Hash) (bool, error) {
	flag, err := s.storage.Get(seenKey(txID))
	return len(flag) != 0, err
}

// CheckAndMark marks txID as settled. It returns ErrAlreadyProcessed and
// leaves state untouched if txID was settled before.
func (s *State) CheckAndMark(txID chainhash.Hash) error {
	seen, err := s.IsProcessed(txID)
	if err != nil {
		return err
	}
	if seen {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, txID)
	}
	return s.storage.Set(seenKey(txID), seenFlag)
}

// AppendPayment queues r at height, after any records already there.
func (s *State) AppendPayment(height uint64, r *payment.Record) error {
	return s.storage.Append(paymentsKey(height), r.Bytes())
}

// PendingPayments returns the records queued at height, concatenated in
// append order.
func (s *State) PendingPayments(height uint64) ([]byte, error) {
	items, err := s.storage.List(paymentsKey(height))
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, item := range items {
		out = append(out, item...)
	}
	return out, nil
}

func (s *State) IsInitialized() (bool, error) {
	flag, err := s.storage.Get(initializedKey)
	return len(flag) != 0, err
}

func (s *State) MarkInitialized() error {
	return s.storage.Set(initializedKey, []byte{0x01})
}

// AuthToken returns the id of the token whose holder governs the contract.
// ok is false before initialization.
func (s *State) AuthToken() (id runtime.ContractID, ok bool, err error) {
	b, err := s.storage.Get(authKey)
	if err != nil || len(b) == 0 {
		return runtime.ContractID{}, false, err
	}
	id, err = runtime.ParseContractID(b)
	if err != nil {
		return runtime.ContractID{}, false, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}
	return id, true, nil
}

func (s *State) SetAuthToken(id runtime.ContractID) error {
	return s.storage.Set(authKey, id.Bytes())
}

// TotalSupply returns the amount of synthetic value in circulation.
func (s *State) TotalSupply() (uint256.Int, error) {
	b, err := s.storage.Get(totalSupplyKey)
	if err != nil || len(b) == 0 {
		return uint256.Int{}, err
	}
	p := wrappers.Packer{Bytes: b}
	supply := p.UnpackU128()
	if p.Errored() || p.Remaining() != 0 {
		return uint256.Int{}, fmt.Errorf("%w: total supply", ErrCorrupted)
	}
	return supply, nil
}

func (s *State) SetTotalSupply(supply *uint256.Int) error {
	p := wrappers.Packer{MaxSize: wrappers.U128Len}
	p.PackU128(supply)
	if p.Errored() {
		return p.Err
	}
	return s.storage.Set(totalSupplyKey, p.Bytes)
}

func seenKey(txID chainhash.Hash) []byte {
	return append(append([]byte(nil), seenPrefix...), txID[:]...)
}

func paymentsKey(height uint64) []byte {
	p := wrappers.Packer{
		MaxSize: len(paymentsPrefix) + wrappers.LongLen,
		Bytes:   append([]byte(nil), paymentsPrefix...),
		Offset:  len(paymentsPrefix),
	}
	p.PackLong(height)
	return p.Bytes
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package envelope decodes the sub-protocol messages a base-chain
// transaction carries in its runestone and selects the one addressed to a
// contract invocation.
package envelope

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	lru "github.com/hashicorp/golang-lru"
)

var (
	ErrNoEmbeddedProtocol = errors.New("no embedded protocol message in transaction")
	ErrMessageNotFound    = errors.New("no protostone at invocation ordinal")
	ErrInvalidTx          = errors.New("invalid transaction encoding")
)

// ParseTx decodes a consensus-encoded transaction, with or without witness
// data.
func ParseTx(raw []byte) (*wire.MsgTx, error) {
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTx, err)
	}
	return tx, nil
}

// Ordinal maps an invocation's virtual output index to the position of its
// protostone: the first protostone sits one past the real outputs.
func Ordinal(tx *wire.MsgTx, vout uint32) (int, error) {
	first := uint64(len(tx.TxOut)) + 1
	if uint64(vout) < first {
		return 0, fmt.Errorf("%w: vout %d addresses a real output", ErrMessageNotFound, vout)
	}
	return int(uint64(vout) - first), nil
}

// Extractor decodes protostones and caches the result per transaction id.
// It is safe for concurrent use.
type Extractor struct {
	cache *lru.Cache
}

// NewExtractor returns an Extractor that remembers the protostones of up to
// cacheSize transactions.
func NewExtractor(cacheSize int) (*Extractor, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Extractor{cache: cache}, nil
}

// Protostones returns every protostone tx carries. It fails with
// ErrNoEmbeddedProtocol if tx has no valid runestone.
func (e *Extractor) Protostones(tx *wire.MsgTx) ([]Protostone, error) {
	txID := tx.TxHash()
	if cached, ok := e.cache.Get(txID); ok {
		return cached.([]Protostone), nil
	}

	stones, err := decode(tx)
	if err != nil {
		return nil, err
	}
	e.cache.Add(txID, stones)
	return stones, nil
}

// Extract returns the protostone at ordinal. The message is returned as
// carried; callers apply their own structural checks.
func (e *Extractor) Extract(tx *wire.MsgTx, ordinal int) (Protostone, error) {
	stones, err := e.Protostones(tx)
	if err != nil {
		return Protostone{}, err
	}
	if ordinal < 0 || ordinal >= len(stones) {
		return Protostone{}, fmt.Errorf("%w: ordinal %d of %d", ErrMessageNotFound, ordinal, len(stones))
	}
	return stones[ordinal], nil
}

// Len returns the number of cached transactions.
func (e *Extractor) Len() int {
	return e.cache.Len()
}

func decode(tx *wire.MsgTx) ([]Protostone, error) {
	rs, err := Decipher(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoEmbeddedProtocol, err)
	}
	return DecodeProtostones(rs.Protocol)
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payment defines the binary layout of pending payment records.
//
// A record is the consensus encoding of the outpoint that funds the payment
// followed by the output to create:
//
//	txid (32) | vout (u32 LE) | amount (u64 LE) | compact size | script
//
// Records at one height are concatenated with no separator.
package payment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/luxfi/pegvm/utils/wrappers"
)

// MaxScriptLen bounds the destination script of a record. Records are
// rejected on creation and on decoding by the same bound.
const MaxScriptLen = 10_000

// outPointLen is the serialized length of an outpoint.
const outPointLen = chainhash.HashSize + wrappers.IntLen

var (
	ErrMalformedRecord = errors.New("malformed payment record")
	ErrAmountTooLarge  = errors.New("payment amount does not fit in 63 bits")
	ErrScriptTooLarge  = errors.New("payment script too large")
)

// Record is a payout the settlement process owes.
type Record struct {
	// Spendable is the bridge output funding the payout.
	Spendable wire.OutPoint
	// Output is the payout itself.
	Output wire.TxOut
}

// New returns a record paying amount to script from spendable.
func New(spendable wire.OutPoint, script []byte, amount uint64) (*Record, error) {
	if amount > math.MaxInt64 {
		return nil, ErrAmountTooLarge
	}
	if len(script) > MaxScriptLen {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrScriptTooLarge, len(script), MaxScriptLen)
	}
	return &Record{
		Spendable: spendable,
		Output: wire.TxOut{
			Value:    int64(amount),
			PkScript: script,
		},
	}, nil
}

// Amount returns the payout value in base units.
func (r *Record) Amount() uint64 {
	return uint64(r.Output.Value)
}

// Size returns the serialized length of r.
func (r *Record) Size() int {
	return outPointLen + r.Output.SerializeSize()
}

// Bytes returns the serialized record.
func (r *Record) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(r.Size())
	r.write(&buf)
	return buf.Bytes()
}

// write appends r to buf. Writes to a bytes.Buffer do not fail.
func (r *Record) write(buf *bytes.Buffer) {
	p := wrappers.Packer{MaxSize: outPointLen}
	p.PackFixedBytes(r.Spendable.Hash[:])
	p.PackInt(r.Spendable.Index)
	buf.Write(p.Bytes)
	_ = wire.WriteTxOut(buf, 0, 0, &r.Output)
}

// Parse decodes a single record that must span all of b.
func Parse(b []byte) (*Record, error) {
	records, err := ParseAll(b)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("%w: expected one record, found %d", ErrMalformedRecord, len(records))
	}
	return records[0], nil
}

// ParseAll decodes a concatenation of records.
func ParseAll(b []byte) ([]*Record, error) {
	var (
		rd      = bytes.NewReader(b)
		records []*Record
	)
	for rd.Len() > 0 {
		offset := len(b) - rd.Len()
		r, err := read(rd)
		if err != nil {
			return nil, fmt.Errorf("%w at offset %d: %w", ErrMalformedRecord, offset, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func read(rd *bytes.Reader) (*Record, error) {
	var header [outPointLen + wrappers.LongLen]byte
	if _, err := io.ReadFull(rd, header[:]); err != nil {
		return nil, err
	}
	p := wrappers.Packer{Bytes: header[:]}
	r := &Record{}
	copy(r.Spendable.Hash[:], p.UnpackFixedBytes(chainhash.HashSize))
	r.Spendable.Index = p.UnpackInt()
	amount := p.UnpackLong()
	if p.Errored() {
		return nil, p.Err
	}
	if amount > math.MaxInt64 {
		return nil, ErrAmountTooLarge
	}

	script, err := wire.ReadVarBytes(rd, 0, MaxScriptLen, "pkScript")
	if err != nil {
		return nil, err
	}
	r.Output = wire.TxOut{
		Value:    int64(amount),
		PkScript: script,
	}
	return r, nil
}

// Concat serializes records back to back.
func Concat(records []*Record) []byte {
	size := 0
	for _, r := range records {
		size += r.Size()
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for _, r := range records {
		r.write(&buf)
	}
	return buf.Bytes()
}

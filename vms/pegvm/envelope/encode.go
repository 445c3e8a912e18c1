// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"slices"

	"github.com/btcsuite/btcd/txscript"
	"github.com/holiman/uint256"
)

// Script returns an OP_RETURN OP_13 output script carrying rs.
func (rs *Runestone) Script() []byte {
	var payload []byte
	if rs.Pointer != nil {
		payload = appendField(payload, tagPointer, uint256.NewInt(uint64(*rs.Pointer)))
	}
	for i := range rs.Protocol {
		payload = appendField(payload, TagProtocol, &rs.Protocol[i])
	}
	payload = appendEdicts(payload, rs.Edicts)

	script := []byte{txscript.OP_RETURN, txscript.OP_13}
	for len(payload) > 0 {
		n := min(len(payload), txscript.MaxScriptElementSize)
		script = appendPush(script, payload[:n])
		payload = payload[n:]
	}
	return script
}

// EncodeProtostones is the inverse of DecodeProtostones.
func EncodeProtostones(stones []Protostone) []uint256.Int {
	var stream []byte
	for i := range stones {
		body := stones[i].integers()
		stream = AppendVarint(stream, &stones[i].ProtocolTag)
		stream = AppendVarintUint64(stream, uint64(len(body)))
		for j := range body {
			stream = AppendVarint(stream, &body[j])
		}
	}
	return splitBytes(stream)
}

// NewCellpack encodes a call to target with inputs as a protostone message.
func NewCellpack(block, tx uint64, inputs ...uint64) []byte {
	msg := AppendVarintUint64(nil, block)
	msg = AppendVarintUint64(msg, tx)
	for _, in := range inputs {
		msg = AppendVarintUint64(msg, in)
	}
	return msg
}

func (p *Protostone) integers() []uint256.Int {
	var b []byte
	for _, v := range splitBytes(p.Message) {
		b = appendField(b, tagMessage, &v)
	}
	if p.Burn != nil {
		b = appendField(b, tagBurn, p.Burn)
	}
	for _, from := range p.From {
		b = appendField(b, tagFrom, uint256.NewInt(uint64(from)))
	}
	if p.Pointer != nil {
		b = appendField(b, tagPtr, uint256.NewInt(uint64(*p.Pointer)))
	}
	if p.Refund != nil {
		b = appendField(b, tagRefund, uint256.NewInt(uint64(*p.Refund)))
	}
	b = appendEdicts(b, p.Edicts)

	// The body is re-read as varints, so this cannot fail.
	values, _ := DecodeVarints(b)
	return values
}

func appendField(b []byte, tag uint64, v *uint256.Int) []byte {
	b = AppendVarintUint64(b, tag)
	return AppendVarint(b, v)
}

func appendEdicts(b []byte, edicts []Edict) []byte {
	if len(edicts) == 0 {
		return b
	}
	sorted := slices.Clone(edicts)
	slices.SortStableFunc(sorted, func(a, b Edict) int {
		if c := a.Block.Cmp(&b.Block); c != 0 {
			return c
		}
		return a.Tx.Cmp(&b.Tx)
	})

	b = AppendVarintUint64(b, tagBody)
	var block, tx uint256.Int
	for _, e := range sorted {
		var blockDelta, txDelta uint256.Int
		blockDelta.Sub(&e.Block, &block)
		if blockDelta.IsZero() {
			txDelta.Sub(&e.Tx, &tx)
		} else {
			txDelta.Set(&e.Tx)
		}
		b = AppendVarint(b, &blockDelta)
		b = AppendVarint(b, &txDelta)
		b = AppendVarint(b, &e.Amount)
		b = AppendVarintUint64(b, uint64(e.Output))
		block, tx = e.Block, e.Tx
	}
	return b
}

// appendPush appends a data push without the small-integer shortcuts a
// canonical script builder would take, so every payload byte is pushed.
func appendPush(script, data []byte) []byte {
	switch n := len(data); {
	case n <= txscript.OP_DATA_75:
		script = append(script, byte(n))
	case n <= 0xff:
		script = append(script, txscript.OP_PUSHDATA1, byte(n))
	default:
		script = append(script, txscript.OP_PUSHDATA2, byte(n), byte(n>>8))
	}
	return append(script, data...)
}

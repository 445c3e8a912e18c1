// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
)

// Runestone field tags. Even tags must be understood by the decoder; odd
// tags may be ignored.
const (
	tagBody        = 0
	tagFlags       = 2
	tagRune        = 4
	tagPremine     = 6
	tagCap         = 8
	tagAmount      = 10
	tagHeightStart = 12
	tagHeightEnd   = 14
	tagOffsetStart = 16
	tagOffsetEnd   = 18
	tagMint        = 20
	tagPointer     = 22
	tagCenotaph    = 126

	// TagProtocol carries the protostone stream.
	TagProtocol = 16383

	knownFlags = 0b111 // etching | terms | turbo
)

var (
	ErrNoRunestone = errors.New("no runestone output")
	ErrCenotaph    = errors.New("cenotaph")

	errOpcode              = errors.New("non-push opcode in payload")
	errTruncatedField      = errors.New("tag without value")
	errTrailingIntegers    = errors.New("incomplete edict")
	errEdictID             = errors.New("edict id out of range")
	errEdictOutput         = errors.New("edict output out of range")
	errPointerRange        = errors.New("pointer out of range")
	errUnrecognizedEvenTag = errors.New("unrecognized even tag")
	errUnrecognizedFlag    = errors.New("unrecognized flag")
	errCenotaphTag         = errors.New("cenotaph tag")
)

var knownEvenTags = map[uint64]struct{}{
	tagFlags:       {},
	tagRune:        {},
	tagPremine:     {},
	tagCap:         {},
	tagAmount:      {},
	tagHeightStart: {},
	tagHeightEnd:   {},
	tagOffsetStart: {},
	tagOffsetEnd:   {},
	tagMint:        {},
	tagPointer:     {},
}

// Edict is a value-transfer instruction.
type Edict struct {
	Block  uint256.Int
	Tx     uint256.Int
	Amount uint256.Int
	Output uint32
}

// Runestone is the decoded OP_RETURN envelope of a transaction. Only the
// parts the peg consumes are kept.
type Runestone struct {
	Edicts   []Edict
	Pointer  *uint32
	Protocol []uint256.Int
}

// Decipher locates and decodes the runestone of tx. It returns
// ErrNoRunestone when no output carries the runestone marker and an error
// wrapping ErrCenotaph when the marked output is malformed.
func Decipher(tx *wire.MsgTx) (*Runestone, error) {
	payload, found, err := runestonePayload(tx)
	if !found {
		return nil, ErrNoRunestone
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCenotaph, err)
	}

	integers, err := DecodeVarints(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCenotaph, err)
	}

	rs, err := parseRunestone(integers, uint64(len(tx.TxOut)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCenotaph, err)
	}
	return rs, nil
}

// runestonePayload concatenates the data pushes of the first output whose
// script starts with OP_RETURN OP_13.
func runestonePayload(tx *wire.MsgTx) ([]byte, bool, error) {
	for _, out := range tx.TxOut {
		tokenizer := txscript.MakeScriptTokenizer(0, out.PkScript)
		if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
			continue
		}
		if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_13 {
			continue
		}

		var payload []byte
		for tokenizer.Next() {
			if tokenizer.Opcode() > txscript.OP_PUSHDATA4 {
				return nil, true, errOpcode
			}
			payload = append(payload, tokenizer.Data()...)
		}
		if err := tokenizer.Err(); err != nil {
			return nil, true, err
		}
		return payload, true, nil
	}
	return nil, false, nil
}

func parseRunestone(integers []uint256.Int, numOutputs uint64) (*Runestone, error) {
	fields, edicts, err := splitMessage(integers, numOutputs, true)
	if err != nil {
		return nil, err
	}

	rs := &Runestone{
		Edicts:   edicts,
		Protocol: fields[TagProtocol],
	}
	delete(fields, TagProtocol)

	if values, ok := fields[tagPointer]; ok {
		if !values[0].IsUint64() || values[0].Uint64() >= numOutputs {
			return nil, errPointerRange
		}
		pointer := uint32(values[0].Uint64())
		rs.Pointer = &pointer
	}
	if values, ok := fields[tagFlags]; ok {
		if !values[0].IsUint64() || values[0].Uint64()&^knownFlags != 0 {
			return nil, errUnrecognizedFlag
		}
	}
	if _, ok := fields[tagCenotaph]; ok {
		return nil, errCenotaphTag
	}
	for tag := range fields {
		if _, known := knownEvenTags[tag]; tag%2 == 0 && !known {
			return nil, errUnrecognizedEvenTag
		}
	}
	return rs, nil
}

// splitMessage reads tag/value pairs until the body tag and then edicts in
// groups of four. Tags too wide for 64 bits are folded into the
// unrecognized-even-tag check by keeping only even-ness.
func splitMessage(integers []uint256.Int, numOutputs uint64, checkOutputs bool) (map[uint64][]uint256.Int, []Edict, error) {
	fields := make(map[uint64][]uint256.Int)
	for i := 0; i < len(integers); i += 2 {
		tag := integers[i]
		if tag.IsZero() {
			edicts, err := parseEdicts(integers[i+1:], numOutputs, checkOutputs)
			return fields, edicts, err
		}
		if i+1 >= len(integers) {
			return nil, nil, errTruncatedField
		}

		key := tag.Uint64()
		if !tag.IsUint64() {
			key = tag.Uint64() & 1
			if key == 0 {
				return nil, nil, errUnrecognizedEvenTag
			}
			continue
		}
		fields[key] = append(fields[key], integers[i+1])
	}
	return fields, nil, nil
}

// parseEdicts decodes delta-encoded edicts. A block delta of zero keeps the
// previous block and adds to its tx; otherwise tx is absolute.
func parseEdicts(integers []uint256.Int, numOutputs uint64, checkOutputs bool) ([]Edict, error) {
	if len(integers)%4 != 0 {
		return nil, errTrailingIntegers
	}

	var (
		edicts    []Edict
		block, tx uint256.Int
	)
	for i := 0; i < len(integers); i += 4 {
		blockDelta, txDelta := integers[i], integers[i+1]
		if blockDelta.IsZero() {
			if _, overflow := tx.AddOverflow(&tx, &txDelta); overflow || tx.BitLen() > 128 {
				return nil, errEdictID
			}
		} else {
			if _, overflow := block.AddOverflow(&block, &blockDelta); overflow || block.BitLen() > 128 {
				return nil, errEdictID
			}
			tx = txDelta
		}

		output := integers[i+3]
		if !output.IsUint64() || output.Uint64() > uint64(^uint32(0)) {
			return nil, errEdictOutput
		}
		if checkOutputs && output.Uint64() > numOutputs {
			return nil, errEdictOutput
		}

		edicts = append(edicts, Edict{
			Block:  block,
			Tx:     tx,
			Amount: integers[i+2],
			Output: uint32(output.Uint64()),
		})
	}
	return edicts, nil
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/pegvm/vms/pegvm/runtime"
)

// Protostone field tags.
const (
	tagMessage = 81
	tagBurn    = 83
	tagFrom    = 87
	tagPtr     = 91
	tagRefund  = 93

	// bytesPerValue is how many little-endian bytes of each protocol value
	// belong to the joined byte stream.
	bytesPerValue = 15
)

var (
	ErrMalformedProtostone = errors.New("malformed protostone")

	errLengthOverrun = errors.New("protostone length overruns stream")
	errFieldRange    = errors.New("protostone field out of range")
	errEmptyCellpack = errors.New("cellpack needs a target")
)

// Protostone is one sub-protocol message carried in a runestone's protocol
// field. Outputs it names may be real outputs or virtual protostone slots.
type Protostone struct {
	ProtocolTag uint256.Int
	Message     []byte
	Burn        *uint256.Int
	Pointer     *uint32
	Refund      *uint32
	From        []uint32
	Edicts      []Edict
}

// DecodeProtostones splits the protocol field of a runestone into its
// protostones. A protocol tag of zero ends the stream.
func DecodeProtostones(protocol []uint256.Int) ([]Protostone, error) {
	values, err := DecodeVarints(joinBytes(protocol))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProtostone, err)
	}

	var stones []Protostone
	for i := 0; i < len(values); {
		tag := values[i]
		if tag.IsZero() {
			break
		}
		if i+1 >= len(values) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedProtostone, errTruncatedField)
		}
		length := values[i+1]
		start := i + 2
		if !length.IsUint64() || length.Uint64() > uint64(len(values)-start) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedProtostone, errLengthOverrun)
		}
		end := start + int(length.Uint64())

		stone, err := parseProtostone(tag, values[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedProtostone, err)
		}
		stones = append(stones, stone)
		i = end
	}
	return stones, nil
}

func parseProtostone(tag uint256.Int, body []uint256.Int) (Protostone, error) {
	fields, edicts, err := splitMessage(body, 0, false)
	if err != nil {
		return Protostone{}, err
	}

	stone := Protostone{
		ProtocolTag: tag,
		Edicts:      edicts,
	}
	if values, ok := fields[tagMessage]; ok {
		stone.Message = joinBytes(values)
	}
	if values, ok := fields[tagBurn]; ok {
		burn := values[0]
		stone.Burn = &burn
	}
	if values, ok := fields[tagPtr]; ok {
		pointer, err := toUint32(&values[0])
		if err != nil {
			return Protostone{}, err
		}
		stone.Pointer = &pointer
	}
	if values, ok := fields[tagRefund]; ok {
		refund, err := toUint32(&values[0])
		if err != nil {
			return Protostone{}, err
		}
		stone.Refund = &refund
	}
	for i := range fields[tagFrom] {
		from, err := toUint32(&fields[tagFrom][i])
		if err != nil {
			return Protostone{}, err
		}
		stone.From = append(stone.From, from)
	}
	return stone, nil
}

// Cellpack decodes the message as a call: target block, target tx, then the
// call inputs.
func (p *Protostone) Cellpack() (runtime.ContractID, []uint256.Int, error) {
	values, err := DecodeVarints(p.Message)
	if err != nil {
		return runtime.ContractID{}, nil, err
	}
	if len(values) < 2 {
		return runtime.ContractID{}, nil, errEmptyCellpack
	}
	target := runtime.ContractID{
		Block: values[0],
		Tx:    values[1],
	}
	return target, values[2:], nil
}

func toUint32(v *uint256.Int) (uint32, error) {
	if !v.IsUint64() || v.Uint64() > uint64(^uint32(0)) {
		return 0, errFieldRange
	}
	return uint32(v.Uint64()), nil
}

// joinBytes concatenates the low 15 little-endian bytes of each value.
func joinBytes(values []uint256.Int) []byte {
	out := make([]byte, 0, len(values)*bytesPerValue)
	for i := range values {
		le := values[i].Bytes32()
		for j := 0; j < bytesPerValue; j++ {
			out = append(out, le[31-j])
		}
	}
	return out
}

// splitBytes is the inverse of joinBytes.
func splitBytes(b []byte) []uint256.Int {
	var values []uint256.Int
	for len(b) > 0 {
		n := min(len(b), bytesPerValue)
		var be [32]byte
		for j := 0; j < n; j++ {
			be[31-j] = b[j]
		}
		values = append(values, *new(uint256.Int).SetBytes32(be[:]))
		b = b[n:]
	}
	return values
}

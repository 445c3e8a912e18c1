// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"

	"github.com/luxfi/pegvm/utils/wrappers"
)

var (
	_ Storage = (*dbStorage)(nil)

	errCorruptLength = errors.New("corrupt list length")

	lengthSuffix = []byte("/length")
)

// Storage is the key-value port contract state lives behind. Missing keys
// read as empty values.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	// Append adds value to the end of the list at key.
	Append(key, value []byte) error
	// List returns the list at key in append order.
	List(key []byte) ([][]byte, error)
}

// KeyValueStore is the subset of a database Storage needs.
type KeyValueStore interface {
	database.KeyValueReader
	database.KeyValueWriter
}

type dbStorage struct {
	db KeyValueStore
}

// NewStorage returns a Storage backed by db. A list at key is kept as a
// u32 count at key+"/length" and its items at key+"/"+u32 index.
func NewStorage(db KeyValueStore) Storage {
	return &dbStorage{db: db}
}

func (s *dbStorage) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

func (s *dbStorage) Set(key, value []byte) error {
	return s.db.Put(key, value)
}

func (s *dbStorage) Append(key, value []byte) error {
	length, err := s.length(key)
	if err != nil {
		return err
	}
	if length == ^uint32(0) {
		return fmt.Errorf("%w: list %q is full", errCorruptLength, key)
	}
	if err := s.db.Put(itemKey(key, length), value); err != nil {
		return err
	}
	return s.db.Put(lengthKey(key), packUint32(length+1))
}

func (s *dbStorage) List(key []byte) ([][]byte, error) {
	length, err := s.length(key)
	if err != nil {
		return nil, err
	}
	items := make([][]byte, 0, length)
	for i := uint32(0); i < length; i++ {
		item, err := s.Get(itemKey(key, i))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *dbStorage) length(key []byte) (uint32, error) {
	b, err := s.Get(lengthKey(key))
	if err != nil || len(b) == 0 {
		return 0, err
	}
	p := wrappers.Packer{Bytes: b}
	length := p.UnpackInt()
	if p.Errored() || p.Remaining() != 0 {
		return 0, fmt.Errorf("%w at %q", errCorruptLength, key)
	}
	return length, nil
}

func lengthKey(key []byte) []byte {
	return append(append([]byte(nil), key...), lengthSuffix...)
}

func itemKey(key []byte, index uint32) []byte {
	k := append(append([]byte(nil), key...), '/')
	return append(k, packUint32(index)...)
}

func packUint32(v uint32) []byte {
	p := wrappers.Packer{MaxSize: wrappers.IntLen}
	p.PackInt(v)
	return p.Bytes
}

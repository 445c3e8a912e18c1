// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/luxfi/pegvm/vms/pegvm/runtime"
)

var (
	ErrInvalidNetwork   = errors.New("invalid network configuration")
	ErrInvalidFuel      = errors.New("invalid fuel configuration")
	ErrInvalidCacheSize = errors.New("invalid cache size configuration")
	ErrInvalidMetadata  = errors.New("invalid token metadata configuration")
	ErrInvalidFactory   = errors.New("invalid auth token factory configuration")
)

var networks = map[string]*chaincfg.Params{
	"mainnet": &chaincfg.MainNetParams,
	"testnet": &chaincfg.TestNet3Params,
	"signet":  &chaincfg.SigNetParams,
	"regtest": &chaincfg.RegressionNetParams,
}

// ContractRef names a contract by its block and tx numbers.
type ContractRef struct {
	Block uint64 `json:"block"`
	Tx    uint64 `json:"tx"`
}

// ID returns the contract id r names.
func (r ContractRef) ID() runtime.ContractID {
	return runtime.NewContractID(r.Block, r.Tx)
}

// Config holds configuration for the peg contract.
type Config struct {
	// Base chain the signer address is rendered for: mainnet, testnet,
	// signet or regtest.
	Network string `json:"network"`

	// Upper bound on the fuel passed to the auth token factory on
	// initialize. The invocation's own budget caps it further.
	AuthDeployFuel uint64 `json:"authDeployFuel"`
	// Contract that deploys the auth token
	AuthTokenFactory ContractRef `json:"authTokenFactory"`

	// Number of transactions whose decoded envelopes are cached
	EnvelopeCacheSize int `json:"envelopeCacheSize"`

	// Token metadata
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() Config {
	return Config{
		Network:        "regtest",
		AuthDeployFuel: 1_000_000,
		AuthTokenFactory: ContractRef{
			Block: 6,
			Tx:    0xffee,
		},
		EnvelopeCacheSize: 1024,
		Name:              "SUBFROST BTC",
		Symbol:            "frBTC",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, ok := networks[c.Network]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidNetwork, c.Network)
	}
	if c.AuthDeployFuel == 0 {
		return ErrInvalidFuel
	}
	if c.EnvelopeCacheSize <= 0 {
		return ErrInvalidCacheSize
	}
	if c.Name == "" || c.Symbol == "" {
		return ErrInvalidMetadata
	}
	if c.AuthTokenFactory.ID().IsEOA() {
		return ErrInvalidFactory
	}
	return nil
}

// ChainParams returns the base chain parameters for Network.
func (c *Config) ChainParams() (*chaincfg.Params, error) {
	params, ok := networks[c.Network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, c.Network)
	}
	return params, nil
}

// ParseConfig parses configuration from JSON bytes.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pegvm implements a peg contract that mints a synthetic token 1:1
// for base-chain coin paid to a custodial signer script and queues payouts
// when the synthetic token is burned.
package pegvm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/log"
	"github.com/luxfi/version"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/pegvm/vms/pegvm/config"
	"github.com/luxfi/pegvm/vms/pegvm/envelope"
	"github.com/luxfi/pegvm/vms/pegvm/opcode"
	"github.com/luxfi/pegvm/vms/pegvm/runtime"
	"github.com/luxfi/pegvm/vms/pegvm/state"

	utilmetric "github.com/luxfi/pegvm/utils/metric"
)

const metricsNamespace = "pegvm"

var Version = &version.Semantic{
	Major: 1,
	Minor: 0,
	Patch: 0,
}

// Contract is one deployed peg instance. Its state lives in its own
// namespace of the supplied database. Invocations are serialized and each
// one commits all of its writes or none of them.
type Contract struct {
	lock sync.Mutex

	id        runtime.ContractID
	config    config.Config
	params    *chaincfg.Params
	db        database.Database
	gateway   runtime.Gateway
	extractor *envelope.Extractor
	log       log.Logger
	metrics   *metrics

	apiInterceptor utilmetric.APIInterceptor
}

// New returns the contract deployed at id.
func New(
	cfg config.Config,
	id runtime.ContractID,
	db database.Database,
	gateway runtime.Gateway,
	logger log.Logger,
	registerer prometheus.Registerer,
) (*Contract, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}
	extractor, err := envelope.NewExtractor(cfg.EnvelopeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create envelope cache: %w", err)
	}
	m, err := newMetrics(metricsNamespace, registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	interceptor, err := utilmetric.NewAPIInterceptor(metricsNamespace, registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register api metrics: %w", err)
	}

	logger.Info("created peg contract",
		log.Stringer("vmID", VMID),
		log.Stringer("contractID", id),
		log.Stringer("version", Version),
		log.Reflect("config", cfg),
	)
	return &Contract{
		id:        id,
		config:    cfg,
		params:    params,
		db:        prefixdb.New(id.Bytes(), db),
		gateway:   gateway,
		extractor: extractor,
		log:       logger,
		metrics:   m,

		apiInterceptor: interceptor,
	}, nil
}

// ID returns the id the contract is deployed at. It is also the asset id of
// the synthetic token.
func (c *Contract) ID() runtime.ContractID {
	return c.id
}

// Execute runs one invocation. On error no state is changed.
func (c *Contract) Execute(ctx context.Context, rc *runtime.Context) (*runtime.Response, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if rc.Myself != c.id {
		return nil, fmt.Errorf("%w: invoked as %s but deployed as %s", ErrInvalidCall, rc.Myself, c.id)
	}

	call, err := opcode.Decode(rc.Inputs)
	if err != nil {
		if errors.Is(err, opcode.ErrArgumentRange) {
			err = fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
		} else {
			err = fmt.Errorf("%w: %w", ErrInvalidCall, err)
		}
		c.log.Debug("failed to decode call",
			log.Stringer("caller", rc.Caller),
			log.Err(err),
		)
		return nil, err
	}

	c.log.Debug("executing",
		log.Stringer("op", call.Op),
		log.Stringer("caller", rc.Caller),
		log.Uint32("vout", rc.Vout),
		log.Uint64("height", rc.Height),
	)
	if call.Legacy {
		c.log.Debug("legacy opcode used",
			log.Stringer("op", call.Op),
			log.String("canonical", uint256.NewInt(opcode.Code(call.Op)).Dec()),
		)
	}

	vdb := versiondb.New(c.db)
	e := &executor{
		contract: c,
		ctx:      ctx,
		rc:       rc,
		state:    state.New(state.NewStorage(vdb)),
	}
	resp, err := e.dispatch(call)
	if err != nil {
		vdb.Abort()
		c.metrics.rejected(call.Op.String())
		c.log.Debug("invocation rejected",
			log.Stringer("op", call.Op),
			log.Err(err),
		)
		return nil, err
	}
	if err := vdb.Commit(); err != nil {
		c.metrics.rejected(call.Op.String())
		return nil, fmt.Errorf("failed to commit %s: %w", call.Op, err)
	}

	c.metrics.accepted(call.Op.String())
	c.metrics.minted.Add(toFloat(&e.minted))
	c.metrics.burned.Add(toFloat(&e.burned))
	if e.queued > 0 {
		c.metrics.payments.Add(float64(e.queued))
		c.metrics.payout.Observe(toFloat(&e.burned))
	}
	return resp, nil
}

// SignerScript returns the committed signer script.
func (c *Contract) SignerScript() ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.readState().SignerScript()
}

// SignerAddress renders the committed signer script as an address on the
// configured network.
func (c *Contract) SignerAddress() (string, error) {
	script, err := c.SignerScript()
	if err != nil {
		return "", err
	}
	return c.signerAddress(script)
}

// PendingPayments returns the committed payment records queued at height.
func (c *Contract) PendingPayments(height uint64) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.readState().PendingPayments(height)
}

// TotalSupply returns the committed synthetic supply.
func (c *Contract) TotalSupply() (uint256.Int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.readState().TotalSupply()
}

// Protostones decodes every protostone in the transaction raw.
func (c *Contract) Protostones(raw []byte) ([]envelope.Protostone, error) {
	tx, err := envelope.ParseTx(raw)
	if err != nil {
		return nil, err
	}
	return c.extractor.Protostones(tx)
}

func (c *Contract) readState() *state.State {
	return state.New(state.NewStorage(c.db))
}

func toFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

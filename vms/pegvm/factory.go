// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pegvm

import (
	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/pegvm/vms/pegvm/config"
	"github.com/luxfi/pegvm/vms/pegvm/runtime"
)

// VMID is the unique identifier for the peg contract
var VMID = ids.ID{'p', 'e', 'g', 'v', 'm', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// Factory creates peg contracts bound to a host database and gateway
type Factory struct {
	Config     config.Config
	ContractID runtime.ContractID
	DB         database.Database
	Gateway    runtime.Gateway
	Registerer prometheus.Registerer
}

// ID returns the id hosts register the factory under
func (*Factory) ID() ids.ID {
	return VMID
}

// New returns a new peg contract
func (f *Factory) New(logger log.Logger) (interface{}, error) {
	registerer := f.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	return New(f.Config, f.ContractID, f.DB, f.Gateway, logger, registerer)
}

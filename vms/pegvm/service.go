// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pegvm

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/luxfi/pegvm/utils/json"
	"github.com/luxfi/pegvm/vms/pegvm/envelope"
	"github.com/luxfi/pegvm/vms/pegvm/payment"
)

const serviceName = "peg"

// Service provides read-only JSON-RPC endpoints over committed peg state
type Service struct {
	contract *Contract
}

// NewService returns a new Service instance
func NewService(contract *Contract) *Service {
	return &Service{contract: contract}
}

// RegisterService registers the peg RPC handlers
func (c *Contract) RegisterService(server *rpc.Server) error {
	return server.RegisterService(NewService(c), serviceName)
}

// CreateHandlers returns the JSON-RPC handler for the contract
func (c *Contract) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")
	server.RegisterInterceptFunc(c.apiInterceptor.InterceptRequest)
	server.RegisterAfterFunc(c.apiInterceptor.AfterRequest)
	if err := c.RegisterService(server); err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"/rpc": server,
	}, nil
}

// EmptyArgs is used by endpoints that take no arguments
type EmptyArgs struct{}

// GetSignerReply is the reply for peg.getSigner
type GetSignerReply struct {
	Script  string `json:"script"`
	Address string `json:"address"`
}

// GetSigner returns the current signer script and its address
func (s *Service) GetSigner(_ *http.Request, _ *EmptyArgs, reply *GetSignerReply) error {
	script, err := s.contract.SignerScript()
	if err != nil {
		return err
	}
	addr, err := s.contract.signerAddress(script)
	if err != nil {
		return err
	}
	reply.Script = hex.EncodeToString(script)
	reply.Address = addr
	return nil
}

// GetPendingPaymentsArgs are the arguments for peg.getPendingPayments
type GetPendingPaymentsArgs struct {
	Height json.Uint64 `json:"height"`
}

// PaymentReply describes a single queued payout
type PaymentReply struct {
	TxID    string      `json:"txID"`
	Vout    json.Uint32 `json:"vout"`
	Amount  json.Uint64 `json:"amount"`
	Value   string      `json:"value"`
	Script  string      `json:"script"`
	Address string      `json:"address,omitempty"`
}

// GetPendingPaymentsReply is the reply for peg.getPendingPayments
type GetPendingPaymentsReply struct {
	Payments []PaymentReply `json:"payments"`
	Raw      string         `json:"raw"`
}

// GetPendingPayments returns the payouts queued at a height
func (s *Service) GetPendingPayments(_ *http.Request, args *GetPendingPaymentsArgs, reply *GetPendingPaymentsReply) error {
	raw, err := s.contract.PendingPayments(uint64(args.Height))
	if err != nil {
		return err
	}
	records, err := payment.ParseAll(raw)
	if err != nil {
		return err
	}

	reply.Raw = hex.EncodeToString(raw)
	reply.Payments = make([]PaymentReply, len(records))
	for i, r := range records {
		reply.Payments[i] = DescribePayment(r, s.contract.params)
	}
	return nil
}

// GetTotalSupplyReply is the reply for peg.getTotalSupply
type GetTotalSupplyReply struct {
	Supply json.U128 `json:"supply"`
}

// GetTotalSupply returns the synthetic supply in base units
func (s *Service) GetTotalSupply(_ *http.Request, _ *EmptyArgs, reply *GetTotalSupplyReply) error {
	supply, err := s.contract.TotalSupply()
	if err != nil {
		return err
	}
	reply.Supply = json.U128(supply)
	return nil
}

// DecodeEnvelopeArgs are the arguments for peg.decodeEnvelope
type DecodeEnvelopeArgs struct {
	Tx string `json:"tx"`
}

// ProtostoneReply summarizes one protostone
type ProtostoneReply struct {
	Vout        json.Uint32  `json:"vout"`
	ProtocolTag json.U128    `json:"protocolTag"`
	Pointer     *json.Uint32 `json:"pointer,omitempty"`
	Edicts      int          `json:"edicts"`
	Message     string       `json:"message"`
}

// DecodeEnvelopeReply is the reply for peg.decodeEnvelope
type DecodeEnvelopeReply struct {
	Protostones []ProtostoneReply `json:"protostones"`
}

// DecodeEnvelope decodes the protostones a transaction carries
func (s *Service) DecodeEnvelope(_ *http.Request, args *DecodeEnvelopeArgs, reply *DecodeEnvelopeReply) error {
	raw, err := hex.DecodeString(args.Tx)
	if err != nil {
		return fmt.Errorf("invalid transaction hex: %w", err)
	}
	tx, err := envelope.ParseTx(raw)
	if err != nil {
		return err
	}
	stones, err := s.contract.extractor.Protostones(tx)
	if err != nil {
		return err
	}

	first := uint32(len(tx.TxOut)) + 1
	reply.Protostones = make([]ProtostoneReply, len(stones))
	for i, stone := range stones {
		r := ProtostoneReply{
			Vout:        json.Uint32(first + uint32(i)),
			ProtocolTag: json.U128(stone.ProtocolTag),
			Edicts:      len(stone.Edicts),
			Message:     hex.EncodeToString(stone.Message),
		}
		if stone.Pointer != nil {
			pointer := json.Uint32(*stone.Pointer)
			r.Pointer = &pointer
		}
		reply.Protostones[i] = r
	}
	return nil
}

// DescribePayment renders r for display. The address is left empty when the
// script has no standard address form.
func DescribePayment(r *payment.Record, params *chaincfg.Params) PaymentReply {
	reply := PaymentReply{
		TxID:   r.Spendable.Hash.String(),
		Vout:   json.Uint32(r.Spendable.Index),
		Amount: json.Uint64(r.Amount()),
		Value:  btcutil.Amount(r.Output.Value).String(),
		Script: hex.EncodeToString(r.Output.PkScript),
	}
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(r.Output.PkScript, params)
	if err == nil && len(addrs) == 1 {
		reply.Address = addrs[0].EncodeAddress()
	}
	return reply
}

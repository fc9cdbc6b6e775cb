package resolver

import (
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event is one decoded log, keyed by ABI field name.
type Event map[string]any

// Receipt is a transaction receipt with strategy events grouped by name.
type Receipt struct {
	TxHash common.Hash
	Events map[string][]Event
}

// NewReceipt builds a Receipt from already decoded events.
func NewReceipt(events map[string][]Event) *Receipt {
	if events == nil {
		events = make(map[string][]Event)
	}
	return &Receipt{Events: events}
}

// DecodeReceipt decodes the strategy events emitter logged in r. Logs from
// any other address are skipped before decoding.
func DecodeReceipt(r *types.Receipt, emitter common.Address) (*Receipt, error) {
	out := NewReceipt(nil)
	if r == nil {
		return out, nil
	}
	out.TxHash = r.TxHash
	for _, log := range r.Logs {
		if log.Address != emitter {
			continue
		}
		name, fields, ok, err := contracts.DecodeLog(log)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out.Events[name] = append(out.Events[name], Event(fields))
	}
	return out, nil
}

// Has reports whether at least one event called name was emitted.
func (r *Receipt) Has(name string) bool {
	return len(r.Events[name]) > 0
}

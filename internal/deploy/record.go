package deploy

import (
	"encoding/json"
	"io"
	"time"

	"github.com/cyphera/sett-deployer/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Record summarizes one pipeline run for the operator.
type Record struct {
	RunID     string          `json:"run_id"`
	Network   string          `json:"network"`
	ChainID   int64           `json:"chain_id"`
	Strategy  string          `json:"strategy"`
	Deployer  common.Address  `json:"deployer"`
	Actors    Actors          `json:"actors"`
	Want      common.Address  `json:"want"`
	Fees      config.FeeTuple `json:"fees"`
	CreatedAt time.Time       `json:"created_at"`

	Controller      common.Address `json:"controller"`
	Vault           common.Address `json:"vault"`
	StrategyAddress common.Address `json:"strategy_address"`

	ControllerDeployed bool `json:"controller_deployed"`
	VaultDeployed      bool `json:"vault_deployed"`

	Transactions map[string]common.Hash `json:"transactions"`
}

func newRecord(target *config.Target, deployer common.Address) *Record {
	return &Record{
		RunID:        uuid.NewString(),
		Network:      target.Network,
		ChainID:      target.ChainID,
		Strategy:     target.Strategy,
		Deployer:     deployer,
		Want:         target.Want,
		Fees:         target.Fees,
		CreatedAt:    time.Now().UTC(),
		Transactions: make(map[string]common.Hash),
	}
}

func (r *Record) addTx(step string, hash common.Hash) {
	if hash != (common.Hash{}) {
		r.Transactions[step] = hash
	}
}

// WriteJSON writes the record as indented JSON.
func (r *Record) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

package deploy

import (
	"context"

	"github.com/cyphera/sett-deployer/internal/chain"
	"github.com/cyphera/sett-deployer/internal/contracts"
	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// WiringResult holds the three wiring transactions.
type WiringResult struct {
	ApproveStrategyTx common.Hash `json:"approve_strategy_tx"`
	SetStrategyTx     common.Hash `json:"set_strategy_tx"`
	SetVaultTx        common.Hash `json:"set_vault_tx"`
}

// Wirer authorizes a strategy and vault for a want token on a controller.
type Wirer struct {
	sender chain.Sender
	logger *zap.Logger
}

func NewWirer(sender chain.Sender, logger *zap.Logger) *Wirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wirer{sender: sender, logger: logger}
}

// Wire runs approveStrategy, setStrategy and setVault in that order. Each
// step is read back before the next one is sent.
func (w *Wirer) Wire(ctx context.Context, controller *contracts.Controller, want, strategy, vault common.Address) (WiringResult, error) {
	var result WiringResult

	receipt, err := controller.ApproveStrategy(ctx, w.sender, want, strategy)
	if err != nil {
		return result, err
	}
	result.ApproveStrategyTx = receipt.TxHash
	approved, err := controller.ApprovedStrategies(ctx, want, strategy)
	if err != nil {
		return result, err
	}
	if !approved {
		return result, errs.Mismatch("controller.approvedStrategies(want, strategy)", true, approved)
	}

	receipt, err = controller.SetStrategy(ctx, w.sender, want, strategy)
	if err != nil {
		return result, err
	}
	result.SetStrategyTx = receipt.TxHash
	current, err := controller.Strategies(ctx, want)
	if err != nil {
		return result, err
	}
	if current != strategy {
		return result, errs.Mismatch("controller.strategies(want)", strategy.Hex(), current.Hex())
	}

	receipt, err = controller.SetVault(ctx, w.sender, want, vault)
	if err != nil {
		return result, err
	}
	result.SetVaultTx = receipt.TxHash
	current, err = controller.Vaults(ctx, want)
	if err != nil {
		return result, err
	}
	if current != vault {
		return result, errs.Mismatch("controller.vaults(want)", vault.Hex(), current.Hex())
	}

	w.logger.Info("Controller wired up",
		zap.String("controller", controller.Address.Hex()),
		zap.String("want", want.Hex()),
		zap.String("strategy", strategy.Hex()),
		zap.String("vault", vault.Hex()),
	)
	return result, nil
}

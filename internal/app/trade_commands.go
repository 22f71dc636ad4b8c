package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/amount"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/gateway"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/orchestrator"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/schema"
)

func (s *runtimeState) newSwapCommand() *cobra.Command {
	root := &cobra.Command{Use: "swap", Short: "Token swaps"}

	var directionArg string
	var amountArg string
	var amountDecimalArg string
	run := &cobra.Command{
		Use:         "run",
		Short:       "Quote, approve if needed, and execute a swap",
		Annotations: map[string]string{schema.MutatingAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			if err := s.ensureStack(ctx); err != nil {
				return err
			}
			if err := s.ensureStore(); err != nil {
				return err
			}
			if _, err := s.connectStrict(ctx); err != nil {
				return err
			}
			dir, err := gateway.ParseDirection(directionArg)
			if err != nil {
				return err
			}
			amountIn, err := s.resolveAmount(ctx, amountArg, amountDecimalArg, s.gw.TokenIn(dir))
			if err != nil {
				return err
			}
			result, err := s.orc.Swap(ctx, orchestrator.SwapRequest{Direction: dir, AmountIn: amountIn})
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, nil)
		},
	}
	run.Flags().StringVar(&directionArg, "direction", "a-to-b", "Swap direction (a-to-b or b-to-a)")
	run.Flags().StringVar(&amountArg, "amount", "", "Input amount in base units")
	run.Flags().StringVar(&amountDecimalArg, "amount-decimal", "", "Input amount in token units")

	root.AddCommand(run)
	return root
}

func (s *runtimeState) newLiquidityCommand() *cobra.Command {
	root := &cobra.Command{Use: "liquidity", Short: "Pool liquidity"}

	var amountAArg string
	var amountADecimalArg string
	var amountBArg string
	var amountBDecimalArg string
	add := &cobra.Command{
		Use:         "add",
		Short:       "Deposit both tokens into the pool",
		Annotations: map[string]string{schema.MutatingAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			if err := s.ensureStack(ctx); err != nil {
				return err
			}
			if err := s.ensureStore(); err != nil {
				return err
			}
			if _, err := s.connectStrict(ctx); err != nil {
				return err
			}
			cfg := s.gw.Config()
			amountA, err := s.resolveAmount(ctx, amountAArg, amountADecimalArg, cfg.TokenA)
			if err != nil {
				return err
			}
			amountB, err := s.resolveAmount(ctx, amountBArg, amountBDecimalArg, cfg.TokenB)
			if err != nil {
				return err
			}
			result, err := s.orc.AddLiquidity(ctx, orchestrator.LiquidityRequest{AmountA: amountA, AmountB: amountB})
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, nil)
		},
	}
	add.Flags().StringVar(&amountAArg, "amount-a", "", "Token A amount in base units")
	add.Flags().StringVar(&amountADecimalArg, "amount-a-decimal", "", "Token A amount in token units")
	add.Flags().StringVar(&amountBArg, "amount-b", "", "Token B amount in base units")
	add.Flags().StringVar(&amountBDecimalArg, "amount-b-decimal", "", "Token B amount in token units")

	root.AddCommand(add)
	return root
}

// resolveAmount turns the base-units / decimal flag pair into base units,
// reading token decimals from the chain with a static fallback.
func (s *runtimeState) resolveAmount(ctx context.Context, baseUnits, decimalStr string, token common.Address) (*big.Int, error) {
	fallback := registry.TokenAFallback
	if token == s.gw.Config().TokenB {
		fallback = registry.TokenBFallback
	}
	info := s.gw.TokenMetadata(ctx, token, fallback)
	return amount.Normalize(baseUnits, decimalStr, info.Decimals)
}

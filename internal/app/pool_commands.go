package app

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/amount"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/gateway"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/quote"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
)

func (s *runtimeState) newPoolCommand() *cobra.Command {
	root := &cobra.Command{Use: "pool", Short: "Pool state"}

	status := &cobra.Command{
		Use:   "status",
		Short: "Reserves, prices, balances, and allowances",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			if err := s.ensureStack(ctx); err != nil {
				return err
			}
			if _, err := s.connectLenient(ctx); err != nil {
				return err
			}
			data, err := s.poolStatus(ctx)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}

	root.AddCommand(status)
	return root
}

func (s *runtimeState) poolStatus(ctx context.Context) (model.PoolStatus, error) {
	cfg := s.gw.Config()
	if err := s.gw.EnsureDeployed(ctx, cfg.Swap, cfg.TokenA, cfg.TokenB); err != nil {
		return model.PoolStatus{}, err
	}

	infoA := s.gw.TokenMetadata(ctx, cfg.TokenA, registry.TokenAFallback)
	infoB := s.gw.TokenMetadata(ctx, cfg.TokenB, registry.TokenBFallback)

	reserveA, reserveB, err := s.gw.AMM().Reserves(ctx)
	if err != nil {
		return model.PoolStatus{}, err
	}

	data := model.PoolStatus{
		Swap:     cfg.Swap.Hex(),
		Variant:  s.gw.AMM().Name(),
		TokenA:   infoA,
		TokenB:   infoB,
		ReserveA: amount.Info(reserveA, infoA.Decimals),
		ReserveB: amount.Info(reserveB, infoB.Decimals),
	}
	if contractPrice, ok, priceErr := s.gw.AMM().ContractPrice(ctx); ok && priceErr == nil {
		data.PriceAInB = amount.FormatDecimal(contractPrice, 18)
	} else {
		if priceErr != nil {
			s.log.Warn("contract price read failed, deriving from reserves", zap.Error(priceErr))
		}
		if price, ok := quote.Price(reserveA, reserveB, infoA.Decimals, infoB.Decimals); ok {
			data.PriceAInB = price.String()
		}
	}
	if price, ok := quote.Price(reserveB, reserveA, infoB.Decimals, infoA.Decimals); ok {
		data.PriceBInA = price.String()
	}

	account, err := s.session.Account()
	if err != nil {
		// No connected account; reserves and prices alone are still useful.
		return data, nil
	}
	balanceA, err := s.gw.BalanceOf(ctx, cfg.TokenA, account)
	if err != nil {
		return model.PoolStatus{}, err
	}
	balanceB, err := s.gw.BalanceOf(ctx, cfg.TokenB, account)
	if err != nil {
		return model.PoolStatus{}, err
	}
	allowanceA, err := s.gw.Allowance(ctx, cfg.TokenA, account, cfg.Swap)
	if err != nil {
		return model.PoolStatus{}, err
	}
	allowanceB, err := s.gw.Allowance(ctx, cfg.TokenB, account, cfg.Swap)
	if err != nil {
		return model.PoolStatus{}, err
	}
	data.BalanceA = amount.Info(balanceA, infoA.Decimals)
	data.BalanceB = amount.Info(balanceB, infoB.Decimals)
	data.AllowanceA = amount.Info(allowanceA, infoA.Decimals)
	data.AllowanceB = amount.Info(allowanceB, infoB.Decimals)
	return data, nil
}

func (s *runtimeState) newQuoteCommand() *cobra.Command {
	var directionArg string
	var amountArg string
	var amountDecimalArg string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Estimate a swap without submitting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			if err := s.ensureStack(ctx); err != nil {
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
			data, err := s.orc.Quote(ctx, dir, amountIn)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
	cmd.Flags().StringVar(&directionArg, "direction", "a-to-b", "Swap direction (a-to-b or b-to-a)")
	cmd.Flags().StringVar(&amountArg, "amount", "", "Input amount in base units")
	cmd.Flags().StringVar(&amountDecimalArg, "amount-decimal", "", "Input amount in token units")
	return cmd
}

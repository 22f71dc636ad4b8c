package app

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
)

func (s *runtimeState) newDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the deployment and report every issue found",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			if err := s.ensureStack(ctx); err != nil {
				return err
			}
			if _, err := s.connectLenient(ctx); err != nil {
				return err
			}
			report := s.checker().Run(ctx)
			var warnings []string
			if !report.Healthy {
				warnings = append(warnings, "deployment has blocking issues")
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), report, warnings)
		},
	}
	return cmd
}

func (s *runtimeState) newHistoryCommand() *cobra.Command {
	var addressArg string
	var limit int
	var local bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Recent account transactions from the block explorer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()

			var account common.Address
			if addressArg != "" {
				parsed, err := parseAddress(addressArg, "account")
				if err != nil {
					return err
				}
				account = parsed
			} else {
				if err := s.ensureStack(ctx); err != nil {
					return err
				}
				if _, err := s.connectLenient(ctx); err != nil {
					return err
				}
				connected, err := s.session.Account()
				if err != nil {
					return clierr.New(clierr.CodeUsage, "no connected account, pass --address")
				}
				account = connected
			}

			if local {
				if err := s.ensureStore(); err != nil {
					return err
				}
				records, err := s.store.List(account.Hex(), limit)
				if err != nil {
					return err
				}
				if records == nil {
					records = []model.TransactionRecord{}
				}
				return s.emitSuccess(trimRootPath(cmd.CommandPath()), records, nil)
			}

			txs, err := s.explorerClient().RecentTransactions(ctx, account, limit)
			if err != nil {
				return err
			}
			if txs == nil {
				txs = []model.ExplorerTransaction{}
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), txs, nil)
		},
	}
	cmd.Flags().StringVar(&addressArg, "address", "", "Account address (defaults to the connected wallet)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of transactions to return")
	cmd.Flags().BoolVar(&local, "local", false, "List transactions recorded by this CLI instead of querying the explorer")
	return cmd
}

package app

import (
	"github.com/spf13/cobra"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
)

func (s *runtimeState) newSessionCommand() *cobra.Command {
	root := &cobra.Command{Use: "session", Short: "Wallet session management"}

	connect := &cobra.Command{
		Use:   "connect",
		Short: "Connect the wallet and ensure the required network",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			if err := s.ensureStack(ctx); err != nil {
				return err
			}
			info, err := s.connectStrict(ctx)
			if err != nil {
				// A declined network switch still leaves a usable session
				// for reads; report it with the degraded state attached.
				if clierr.Is(err, clierr.CodeChainSwitchFailed) {
					return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.session.Snapshot(),
						[]string{"connected to the wrong network, swaps and liquidity are blocked"})
				}
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), info, nil)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the wallet session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			if err := s.ensureStack(ctx); err != nil {
				return err
			}
			info, err := s.connectLenient(ctx)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), info, nil)
		},
	}

	disconnect := &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect and clear all session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			if err := s.ensureStack(ctx); err != nil {
				return err
			}
			if _, err := s.connectLenient(ctx); err != nil {
				return err
			}
			s.session.Disconnect()
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.session.Snapshot(), nil)
		},
	}

	root.AddCommand(connect, status, disconnect)
	return root
}

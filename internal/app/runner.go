// Package app wires the CLI surface: cobra commands, configuration
// loading, dependency construction, and envelope rendering.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GuillermoSiaira/simpleswap-cli/internal/config"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/diagnostics"
	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/explorer"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/gateway"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/httpx"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/model"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/orchestrator"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/out"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/policy"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/quote"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/registry"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/schema"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/txstore"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/version"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet"
	"github.com/GuillermoSiaira/simpleswap-cli/internal/wallet/signer"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	// newBridge lets tests substitute a fake bridge for the RPC dial.
	newBridge func(ctx context.Context, state *runtimeState) (wallet.Bridge, error)
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner      *Runner
	flags       config.GlobalFlags
	settings    config.Settings
	log         *zap.Logger
	root        *cobra.Command
	lastCommand string

	bridge    wallet.Bridge
	signer    signer.Signer
	signerErr error
	session   *wallet.Session
	gw        *gateway.Gateway
	orc       *orchestrator.Orchestrator
	store     *txstore.Store
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	state.close()
	if err == nil {
		return 0
	}

	state.renderError("", err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.bridge != nil {
		s.bridge.Close()
	}
	if s.log != nil {
		_ = s.log.Sync()
	}
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "SimpleSwap AMM client for the Sepolia testnet",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return err
			}
			s.settings = settings
			s.lastCommand = trimRootPath(cmd.CommandPath())

			if err := policy.CheckCommandAllowed(settings.ReadOnly, s.lastCommand); err != nil {
				return err
			}

			log, err := newLogger(settings.LogLevel)
			if err != nil {
				return err
			}
			s.log = log
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated)")
	cmd.PersistentFlags().BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries per explorer request")
	cmd.PersistentFlags().StringVar(&s.flags.RPCURL, "rpc-url", "", "RPC endpoint override")
	cmd.PersistentFlags().Int64Var(&s.flags.ChainID, "chain-id", 0, "Chain id override")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&s.flags.ReadOnly, "read-only", false, "Block commands that submit transactions")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")

	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(s.newSessionCommand())
	cmd.AddCommand(s.newPoolCommand())
	cmd.AddCommand(s.newQuoteCommand())
	cmd.AddCommand(s.newSwapCommand())
	cmd.AddCommand(s.newLiquidityCommand())
	cmd.AddCommand(s.newDoctorCommand())
	cmd.AddCommand(s.newHistoryCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Describe(s.root, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Info()
			if long {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit: %s, built: %s)\n", version.CLIName, info.Version, info.Commit, info.Date)
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), info.Version)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl := zap.NewAtomicLevel()
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid log level %q", level), err)
		}
		cfg.Level = lvl
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build logger", err)
	}
	return log, nil
}

// ensureStack dials the chain and constructs the session, gateway, and
// orchestrator once per process. Commands that never touch the chain do
// not pay for it.
func (s *runtimeState) ensureStack(ctx context.Context) error {
	if s.bridge != nil {
		return nil
	}

	descriptor, ok := registry.ChainByID(s.settings.ChainID)
	if !ok {
		descriptor = registry.ChainDescriptor{ChainID: s.settings.ChainID, Name: fmt.Sprintf("chain %d", s.settings.ChainID)}
	}

	localSigner, err := signer.NewLocalSignerFromEnv(signer.KeySourceAuto)
	if err != nil {
		s.signerErr = err
	} else {
		s.signer = localSigner
	}

	newBridge := s.runner.newBridge
	if newBridge == nil {
		newBridge = dialNodeBridge
	}
	bridge, err := newBridge(ctx, s)
	if err != nil {
		return err
	}
	s.bridge = bridge
	s.session = wallet.NewSession(bridge, descriptor, s.log)

	cfg, err := gateway.ConfigFromStrings(s.settings.TokenA, s.settings.TokenB, s.settings.Swap, s.settings.Variant)
	if err != nil {
		return err
	}
	gw, err := gateway.New(bridge, cfg, s.log)
	if err != nil {
		return err
	}
	s.gw = gw

	s.orc = orchestrator.New(s.session, bridge, gw, nil, s.log, orchestrator.Options{
		ChainID:          s.settings.ChainID,
		SwapPolicy:       s.swapPolicy(),
		LiquidityBps:     s.settings.LiquiditySlippageBps,
		UseContractQuote: s.settings.FeeMode == config.FeeModeContract,
		DeadlineWindow:   s.settings.DeadlineWindow,
	})
	return nil
}

func dialNodeBridge(ctx context.Context, s *runtimeState) (wallet.Bridge, error) {
	bridge, err := wallet.DialNode(ctx, s.settings.ChainID, s.signer, wallet.NodeBridgeOptions{
		RPCOverride:        s.settings.RPCURL,
		GasLimitMultiplier: s.settings.GasLimitMultiplier,
		PollInterval:       s.settings.PollInterval,
		ConfirmTimeout:     s.settings.ConfirmTimeout,
		Logger:             s.log,
	})
	if err != nil {
		return nil, err
	}
	return bridge, nil
}

func (s *runtimeState) swapPolicy() quote.Policy {
	policy := quote.Policy{
		Mode:        quote.FeeModeLinear,
		SlippageBps: s.settings.SwapSlippageBps,
	}
	if s.settings.FeeMode != config.FeeModeLinear {
		policy.Mode = quote.FeeModeAdjusted
		policy.Numerator = s.settings.FeeNumerator
		policy.Denominator = s.settings.FeeDenominator
	}
	return policy
}

// ensureStore opens the transaction record store and attaches it to the
// orchestrator. Only mutating workflows pay the sqlite cost.
func (s *runtimeState) ensureStore() error {
	if s.store != nil {
		return nil
	}
	store, err := txstore.Open(s.settings.TxStorePath, s.settings.TxLockPath)
	if err != nil {
		return err
	}
	s.store = store
	if s.orc != nil {
		s.orc.SetStore(store)
	}
	return nil
}

// connectLenient establishes the session for read-only commands. A node
// without a configured key or a refused chain switch still allows reads.
func (s *runtimeState) connectLenient(ctx context.Context) (model.SessionInfo, error) {
	info, err := s.session.Connect(ctx)
	if err != nil && (clierr.Is(err, clierr.CodeNoAccounts) || clierr.Is(err, clierr.CodeChainSwitchFailed)) {
		return s.session.Snapshot(), nil
	}
	if err != nil {
		return model.SessionInfo{}, err
	}
	return info, nil
}

func (s *runtimeState) connectStrict(ctx context.Context) (model.SessionInfo, error) {
	if s.signer == nil {
		return model.SessionInfo{}, clierr.Wrap(clierr.CodeNoWallet, "no signing key configured", s.signerErr)
	}
	return s.session.Connect(ctx)
}

func (s *runtimeState) commandContext() (context.Context, context.CancelFunc) {
	timeout := s.settings.ConfirmTimeout
	if timeout < s.settings.Timeout {
		timeout = s.settings.Timeout
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	// Room for sequential approve + swap confirmations.
	return context.WithTimeout(context.Background(), 3*timeout)
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
		},
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(commandPath string, err error) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	code := clierr.ExitCode(err)
	typ := clierr.CodeInternal.String()
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		typ = cErr.Code.String()
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
	}

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Data:    []any{},
		Error: &model.ErrorBody{
			Code:    code,
			Type:    typ,
			Message: message,
		},
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
		},
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func (s *runtimeState) httpClient() *httpx.Client {
	return httpx.New(s.settings.Timeout, s.settings.Retries)
}

func (s *runtimeState) explorerClient() *explorer.Client {
	descriptor, _ := registry.ChainByID(s.settings.ChainID)
	base := ""
	if len(descriptor.BlockExplorerURLs) > 0 {
		base = descriptor.BlockExplorerURLs[0]
	}
	return explorer.New(s.httpClient(), s.settings.ExplorerAPIURL, s.settings.ExplorerAPIKey, s.settings.ExplorerPageSize, base, s.log)
}

func (s *runtimeState) checker() *diagnostics.Checker {
	descriptor, ok := registry.ChainByID(s.settings.ChainID)
	if !ok {
		descriptor = registry.ChainDescriptor{ChainID: s.settings.ChainID}
	}
	return diagnostics.New(s.bridge, s.gw, s.session, descriptor, s.log)
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func parseAddress(value, what string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid %s address %q", what, value))
	}
	return common.HexToAddress(value), nil
}

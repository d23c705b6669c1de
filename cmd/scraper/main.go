package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/pinax-network/token-api-scraper/internal/ratelimiter"
	"github.com/pinax-network/token-api-scraper/internal/rpc"
	"github.com/pinax-network/token-api-scraper/internal/tokens"
	"github.com/pinax-network/token-api-scraper/pkg/common/config"
	"github.com/pinax-network/token-api-scraper/pkg/common/logger"
	"github.com/pinax-network/token-api-scraper/pkg/events"
	"github.com/pinax-network/token-api-scraper/pkg/infra"
	"github.com/pinax-network/token-api-scraper/pkg/kvstore"
	"github.com/pinax-network/token-api-scraper/pkg/retry"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "scraper",
		Short: "Resolve token metadata from chain nodes over JSON-RPC",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger.Init(&logger.Options{
				Level:      level,
				TimeFormat: time.RFC3339,
			})
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logs")

	root.AddCommand(evmCmd(), solanaCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func evmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evm <chain> <contract>...",
		Short: "Resolve ERC-20 token records on an EVM or Tron chain",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainName, contracts := args[0], args[1:]

			app, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			chain, err := app.cfg.Chains.GetChain(chainName)
			if err != nil {
				return err
			}
			if chain.Type != config.ChainTypeEVM && chain.Type != config.ChainTypeTron {
				return fmt.Errorf("chain %s is not an EVM chain", chainName)
			}

			client := rpc.NewEVMClient(
				chain.Nodes[0].URL,
				nodeAuth(chain.Nodes[0]),
				app.limiter(chain),
				retryOptions(chain),
			)
			service := tokens.NewEVMService(client, chainName, app.evmOptions()...)

			ctx, stop := signalContext()
			defer stop()

			result, err := service.FetchTokens(ctx, contracts)
			if err != nil {
				logger.Warn("some tokens could not be resolved", "error", err)
			}
			return printJSON(result)
		},
	}
}

func solanaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solana <mint>...",
		Short: "Resolve SPL token records, LP mints included",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			chain, err := app.cfg.Chains.GetChain("solana")
			if err != nil {
				return err
			}

			client := rpc.NewSolanaClient(
				chain.Nodes[0].URL,
				nodeAuth(chain.Nodes[0]),
				app.limiter(chain),
				retryOptions(chain),
			)
			service := tokens.NewSolanaService(client, app.solanaOptions()...)

			ctx, stop := signalContext()
			defer stop()

			result, err := service.FetchTokens(ctx, args)
			if err != nil {
				logger.Warn("some tokens could not be resolved", "error", err)
			}
			return printJSON(result)
		},
	}
}

// app holds the shared process-level dependencies, wired explicitly from
// config rather than through globals.
type app struct {
	cfg      config.Config
	cache    kvstore.Store
	cacheTTL time.Duration
	natsConn *nats.Conn
	emitter  events.Emitter
	pools    []*ratelimiter.Pool
}

func newApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	a := &app{cfg: cfg}

	if cfg.Cache.Enabled {
		store, err := kvstore.NewBadgerStore(cfg.Cache.Directory, cfg.Cache.Prefix)
		if err != nil {
			return nil, err
		}
		a.cache = store
		if cfg.Cache.TTL != "" {
			ttl, err := time.ParseDuration(cfg.Cache.TTL)
			if err != nil {
				return nil, fmt.Errorf("invalid cache ttl %q: %w", cfg.Cache.TTL, err)
			}
			a.cacheTTL = ttl
		}
	}

	if cfg.NATS.Enabled {
		var conn *nats.Conn
		err := retry.Exponential(func() error {
			var err error
			conn, err = infra.GetNATSConnection(cfg.NATS, cfg.Environment)
			return err
		}, retry.ExponentialConfig{
			InitialInterval: time.Second,
			MaxElapsedTime:  30 * time.Second,
			OnRetry: func(err error, next time.Duration) {
				logger.Warn("NATS connect failed, retrying", "error", err, "next", next)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("connect NATS: %w", err)
		}
		a.natsConn = conn
		a.emitter = events.NewEmitter(conn, cfg.NATS.SubjectPrefix)
	}

	return a, nil
}

func (a *app) limiter(chain config.ChainConfig) *ratelimiter.Pool {
	rps := chain.Client.Throttle.RPS
	if rps <= 0 {
		return nil
	}
	burst := chain.Client.Throttle.Burst
	if burst <= 0 {
		burst = 1
	}
	pool := ratelimiter.NewPool(time.Second/time.Duration(rps), burst)
	a.pools = append(a.pools, pool)
	return pool
}

func (a *app) evmOptions() []tokens.EVMServiceOption {
	var opts []tokens.EVMServiceOption
	if a.cache != nil {
		opts = append(opts, tokens.WithCache(a.cache, a.cacheTTL))
	}
	if a.emitter != nil {
		opts = append(opts, tokens.WithEmitter(a.emitter))
	}
	return opts
}

func (a *app) solanaOptions() []tokens.SolanaServiceOption {
	var opts []tokens.SolanaServiceOption
	if a.cache != nil {
		opts = append(opts, tokens.WithSolanaCache(a.cache, a.cacheTTL))
	}
	if a.emitter != nil {
		opts = append(opts, tokens.WithSolanaEmitter(a.emitter))
	}
	return opts
}

func (a *app) Close() {
	for _, pool := range a.pools {
		pool.Close()
	}
	if a.emitter != nil {
		a.emitter.Close()
	} else if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error("failed to close cache", "error", err)
		}
	}
}

func nodeAuth(node config.Node) *rpc.AuthConfig {
	if node.Auth == "" {
		return nil
	}
	return &rpc.AuthConfig{
		Type:     node.Auth,
		Token:    node.ApiKey,
		Username: node.Username,
		Password: node.Password,
		Headers:  node.Headers,
	}
}

func retryOptions(chain config.ChainConfig) retry.Options {
	opts := retry.DefaultOptions()
	if chain.Client.MaxRetries > 0 {
		opts.Retries = chain.Client.MaxRetries
	}
	if chain.Client.RetryDelay > 0 {
		opts.BaseDelay = chain.Client.RetryDelay
	}
	if chain.Client.Timeout > 0 {
		opts.Timeout = chain.Client.Timeout
	}
	if chain.Client.MaxDelay > 0 {
		opts.MaxDelay = chain.Client.MaxDelay
	}
	if chain.Client.JitterMin > 0 {
		opts.JitterMin = chain.Client.JitterMin
	}
	if chain.Client.JitterMax > 0 {
		opts.JitterMax = chain.Client.JitterMax
	}
	return opts
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// automaton is the agent daemon's entrypoint: init provisions a fresh agent
// home directory, provision verifies funding and provider reachability
// without starting the turn loop, and run starts the three long-lived
// workers (Turn, Scheduler, Tier-watch) until shutdown. Grounded on the
// teacher's cmd/hattiebot/main.go (config load -> db open -> component
// wiring -> blocking run), restructured around spf13/cobra subcommands
// since the teacher's single-binary-does-everything main() is generalized
// here into the three verbs spec.md's CLI surface names.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/automaton-run/automaton/internal/agent"
	"github.com/automaton-run/automaton/internal/config"
	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/llmrouter"
	"github.com/automaton-run/automaton/internal/providers"
	"github.com/automaton-run/automaton/internal/scheduler"
	"github.com/automaton-run/automaton/internal/skills"
	"github.com/automaton-run/automaton/internal/store"
	"github.com/automaton-run/automaton/internal/survival"
	"github.com/automaton-run/automaton/internal/tools"
)

// Exit codes per spec.md §6.
const (
	exitNormal                = 0
	exitConfigError           = 1
	exitFundingError          = 2
	exitProviderUnrecoverable = 3
)

func main() {
	root := &cobra.Command{
		Use:   "automaton",
		Short: "Autonomous agent daemon: owns a wallet, pays for its own compute, runs a Think-Act-Observe loop.",
	}

	var agentHome string
	root.PersistentFlags().StringVar(&agentHome, "home", "", "agent home directory (default: AUTOMATON_HOME, else ./.automaton if it exists, else ~/.automaton)")

	root.AddCommand(newInitCmd(&agentHome))
	root.AddCommand(newProvisionCmd(&agentHome))
	root.AddCommand(newRunCmd(&agentHome))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitConfigError)
	}
}

func newInitCmd(agentHome *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a fresh agent home directory with a placeholder SOUL.md, a generated wallet key, and a seeded model registry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runInit(*agentHome); err != nil {
				return err
			}
			fmt.Println("initialized agent home")
			return nil
		},
	}
}

func newProvisionCmd(agentHome *string) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Verify funding and provider reachability without starting the turn loop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runProvision(cmd.Context(), *agentHome)
			if err != nil {
				fmt.Fprintf(os.Stderr, "provision: %v\n", err)
			}
			os.Exit(code)
			return nil
		},
	}
}

func newRunCmd(agentHome *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the turn engine, scheduler, and tier watcher; blocks until shutdown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runDaemon(cmd.Context(), *agentHome)
			if err != nil {
				fmt.Fprintf(os.Stderr, "run: %v\n", err)
			}
			os.Exit(code)
			return nil
		},
	}
}

func runInit(agentHome string) error {
	cfg, err := config.Load(agentHome)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.AgentHome, 0o755); err != nil {
		return fmt.Errorf("mkdir agent home: %w", err)
	}
	if err := os.MkdirAll(cfg.SkillsDir(), 0o755); err != nil {
		return fmt.Errorf("mkdir skills dir: %w", err)
	}
	if err := os.MkdirAll(cfg.SandboxBaseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir sandbox dir: %w", err)
	}

	if _, err := os.Stat(cfg.SoulPath); os.IsNotExist(err) {
		if err := os.WriteFile(cfg.SoulPath, []byte("# SOUL\n\n(unwritten — the automaton fills this in as it develops an identity)\n"), 0o644); err != nil {
			return fmt.Errorf("write SOUL.md: %w", err)
		}
	}

	if _, err := providers.LoadOrCreateWallet(cfg.WalletKeyPath); err != nil {
		return fmt.Errorf("provision wallet: %w", err)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := llmrouter.SeedBaselineModels(ctx, db, time.Now()); err != nil {
		return fmt.Errorf("seed model registry: %w", err)
	}

	return nil
}

// runProvision loads config, opens the store, and checks that liquid funds
// are non-zero and the configured providers are reachable, without starting
// any worker. It returns the process exit code directly per spec.md §6.
func runProvision(ctx context.Context, agentHome string) (int, error) {
	cfg, err := config.Load(agentHome)
	if err != nil {
		return exitConfigError, fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return exitConfigError, fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	credits, _, err := db.ConfigValue(ctx, "liquid_credits_cents")
	if err != nil {
		return exitConfigError, fmt.Errorf("read liquid credits: %w", err)
	}
	usdc, _, err := db.ConfigValue(ctx, "liquid_usdc_cents")
	if err != nil {
		return exitConfigError, fmt.Errorf("read liquid usdc: %w", err)
	}
	if credits == "" && usdc == "" {
		return exitFundingError, errors.New("no funding signal recorded yet; fund the automaton's wallet and retry")
	}

	if cfg.SocialRelayURL != "" {
		relay := providers.NewSocialRelay(cfg.SocialRelayURL, cfg.SocialAPIKey)
		pollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, _, err := relay.Poll(pollCtx, "")
		cancel()
		if err != nil {
			return exitProviderUnrecoverable, fmt.Errorf("social relay unreachable: %w", err)
		}
	}

	fmt.Println("provision checks passed")
	return exitNormal, nil
}

// runDaemon wires every component and runs the three long-lived workers
// per §6 of SPEC_FULL.md until shutdown, returning the spec.md §6 exit code.
func runDaemon(ctx context.Context, agentHome string) (int, error) {
	cfg, err := config.Load(agentHome)
	if err != nil {
		return exitConfigError, fmt.Errorf("load config: %w", err)
	}

	log, err := zap.NewProduction()
	if err != nil {
		return exitConfigError, fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return exitConfigError, fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := llmrouter.SeedBaselineModels(ctx, db, time.Now()); err != nil {
		return exitConfigError, fmt.Errorf("seed model registry: %w", err)
	}

	n, err := agent.RecoverUnfinalizedTurns(ctx, db)
	if err != nil {
		return exitConfigError, fmt.Errorf("recover unfinalized turns: %w", err)
	}
	if n > 0 {
		log.Warn("aborted unfinalized turns from a prior crash", zap.Int("count", n))
	}

	credits, _, err := readConfigInt(ctx, db, "liquid_credits_cents")
	if err != nil {
		return exitConfigError, fmt.Errorf("read liquid credits: %w", err)
	}
	usdcBal, _, err := readConfigInt(ctx, db, "liquid_usdc_cents")
	if err != nil {
		return exitConfigError, fmt.Errorf("read liquid usdc: %w", err)
	}

	controller := survival.New(survival.Signals{LiquidCents: credits + usdcBal})
	tierFn := controller.Current

	sandbox, err := providers.NewLocalSandbox(cfg.SandboxBaseDir)
	if err != nil {
		return exitProviderUnrecoverable, fmt.Errorf("init sandbox: %w", err)
	}

	wallet, err := providers.LoadOrCreateWallet(cfg.WalletKeyPath)
	if err != nil {
		return exitFundingError, fmt.Errorf("load wallet: %w", err)
	}

	var social core.Social
	if cfg.SocialRelayURL != "" {
		social = providers.NewSocialRelay(cfg.SocialRelayURL, cfg.SocialAPIKey)
	}

	var chain core.ChainRPC
	if cfg.ChainRPCEndpoint != "" {
		chain = providers.NewJSONRPCChain(cfg.ChainRPCEndpoint)
	}

	factories := map[string]llmrouter.ProviderFactory{
		"openrouter": func() (core.Inference, error) {
			if cfg.OpenRouterAPIKey == "" {
				return nil, errors.New("OPENROUTER_API_KEY not set")
			}
			return llmrouter.NewHTTPProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey), nil
		},
		"genai": func() (core.Inference, error) {
			if cfg.GeminiAPIKey == "" {
				return nil, errors.New("GEMINI_API_KEY not set")
			}
			return llmrouter.NewGenAIProvider(ctx, cfg.GeminiAPIKey)
		},
	}

	router, err := llmrouter.New(db, llmrouter.DefaultMatrix(), factories, llmrouter.Config{
		GlobalPerCallCeilingCents: cfg.GlobalPerCallCeilingCents,
		HourlyBudgetCents:         cfg.HourlyBudgetCents,
		EnableModelFallback:       cfg.EnableModelFallback,
	})
	if err != nil {
		return exitProviderUnrecoverable, fmt.Errorf("construct router: %w", err)
	}

	skillsMgr := skills.NewManager(cfg.SkillsDir(), db)
	if _, err := skillsMgr.LoadAll(ctx); err != nil {
		return exitConfigError, fmt.Errorf("load skills: %w", err)
	}

	toolExec := tools.NewExecutor(db, func() string { return uuid.NewString() })
	toolExec.Sandbox = sandbox
	toolExec.Social = social
	toolExec.Wallet = wallet
	toolExec.Chain = chain
	toolExec.Skills = skillsMgr

	buildPrompt := func(ctx context.Context) (string, error) {
		soul := ""
		if b, err := os.ReadFile(cfg.SoulPath); err == nil {
			soul = string(b)
		}
		activeSkills, err := skillsMgr.ActiveSkills(ctx)
		if err != nil {
			return "", err
		}

		tier := tierFn()
		hourlySpend, err := db.HourlySpendCents(ctx, time.Now())
		if err != nil {
			return "", err
		}
		children, err := db.ListChildren(ctx)
		if err != nil {
			return "", err
		}
		activeJob, err := db.GetActiveJob(ctx, "self")
		if err != nil {
			return "", err
		}
		activeJobTitle := ""
		if activeJob != nil {
			activeJobTitle = activeJob.Title
		}

		opCtx := agent.OperationalContext{
			Tier:             tier,
			LiquidCents:      credits + usdcBal,
			HourlySpendCents: hourlySpend,
			ParentAddress:    cfg.ParentAddress,
			ChildCount:       len(children),
			ActiveJobTitle:   activeJobTitle,
		}
		return agent.BuildSystemPrompt(cfg.GenesisPrompt, soul, activeSkills, opCtx), nil
	}

	engine := agent.NewEngine(db, router, toolExec, buildPrompt, tierFn,
		agent.WithCreatorMessagePath(cfg.CreatorMessagePath()),
		agent.WithToolDefinitions(tools.Definitions()),
	)

	sched := scheduler.New(db, tierFn, cfg.LowComputeFactor)
	if err := registerSchedulerTasks(ctx, sched, db, controller, sandbox, social, chain, cfg, wallet, log); err != nil {
		return exitConfigError, fmt.Errorf("register scheduler tasks: %w", err)
	}

	watcher, err := agent.NewCreatorMessageWatcher(cfg.CreatorMessagePath(), log)
	if err != nil {
		return exitProviderUnrecoverable, fmt.Errorf("init creator message watcher: %w", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		watcher.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		return runTurnWorker(groupCtx, engine, sched, watcher, log)
	})

	group.Go(func() error {
		return runSchedulerWorker(groupCtx, sched, log)
	})

	group.Go(func() error {
		return runTierWatchWorker(groupCtx, controller, db, log)
	})

	err = group.Wait()
	_ = watcher.Stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker exited with error", zap.Error(err))
		return exitProviderUnrecoverable, err
	}
	return exitNormal, nil
}

// runTurnWorker drains pending input (creator message, inbox, or scheduler
// wake) one turn at a time, blocking on whichever trigger fires first.
func runTurnWorker(ctx context.Context, engine *agent.Engine, sched *scheduler.Scheduler, watcher *agent.CreatorMessageWatcher, log *zap.Logger) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	drain := func() error {
		for {
			var wake *core.WakeSignal
			if sig, ok := sched.DrainWake(); ok {
				wake = &sig
			}

			ran, err := engine.RunTurn(ctx, wake)
			if err != nil {
				log.Error("turn failed", zap.Error(err))
				return nil
			}
			if !ran {
				return nil
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watcher.Signal():
			if err := drain(); err != nil {
				return err
			}
		case <-ticker.C:
			if err := drain(); err != nil {
				return err
			}
		}
	}
}

func runSchedulerWorker(ctx context.Context, sched *scheduler.Scheduler, log *zap.Logger) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sched.Tick(ctx); err != nil {
				log.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

func runTierWatchWorker(ctx context.Context, controller *survival.Controller, db *store.DB, log *zap.Logger) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			credits, _, err := readConfigInt(ctx, db, "liquid_credits_cents")
			if err != nil {
				log.Error("tier watch: read credits", zap.Error(err))
				continue
			}
			usdc, _, err := readConfigInt(ctx, db, "liquid_usdc_cents")
			if err != nil {
				log.Error("tier watch: read usdc", zap.Error(err))
				continue
			}
			hourlySpend, err := db.HourlySpendCents(ctx, time.Now())
			if err != nil {
				log.Error("tier watch: read hourly spend", zap.Error(err))
				continue
			}
			if tier, changed := controller.Evaluate(survival.Signals{LiquidCents: credits + usdc, HourlySpendCents: hourlySpend}); changed {
				log.Warn("tier changed", zap.String("tier", string(tier)))
			}
		}
	}
}

func registerSchedulerTasks(ctx context.Context, sched *scheduler.Scheduler, db *store.DB, controller *survival.Controller, sandbox core.SandboxExec, social core.Social, chain core.ChainRPC, cfg *config.Config, wallet core.WalletSigner, log *zap.Logger) error {
	everyMinute, err := scheduler.ParseCron("* * * * *")
	if err != nil {
		return err
	}
	every5Minutes, err := scheduler.ParseCron("*/5 * * * *")
	if err != nil {
		return err
	}

	if err := sched.Register(ctx, withCron(scheduler.NewHeartbeatPingTask(db, log), everyMinute, true)); err != nil {
		return err
	}
	if err := sched.Register(ctx, withCron(scheduler.NewHealthCheckTask(sandbox), every5Minutes, true)); err != nil {
		return err
	}
	if social != nil {
		if err := sched.Register(ctx, withCron(scheduler.NewCheckSocialInboxTask(db, social), everyMinute, false)); err != nil {
			return err
		}
	}

	if cfg.OpenRouterAPIKey != "" {
		creditsFetcher := func(fetchCtx context.Context) (int64, error) {
			return llmrouter.FetchOpenRouterCredits(fetchCtx, cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey)
		}
		if err := sched.Register(ctx, withCron(scheduler.NewCheckCreditsTask(db, controller, creditsFetcher), every5Minutes, true)); err != nil {
			return err
		}
	}
	if chain != nil && cfg.USDCContractAddress != "" {
		balanceFetcher := func(fetchCtx context.Context) (int64, error) {
			return providers.USDCBalanceHundredthCents(fetchCtx, chain, cfg.USDCContractAddress, wallet.Address())
		}
		if err := sched.Register(ctx, withCron(scheduler.NewCheckUSDCBalanceTask(db, controller, balanceFetcher), every5Minutes, true)); err != nil {
			return err
		}
	}
	return nil
}

func withCron(t scheduler.Task, cron scheduler.CronSpec, criticalAllowed bool) scheduler.Task {
	t.Cron = cron
	t.CriticalAllowed = t.CriticalAllowed || criticalAllowed
	return t
}

func readConfigInt(ctx context.Context, db *store.DB, key string) (int64, bool, error) {
	raw, ok, err := db.ConfigValue(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	var v int64
	_, err = fmt.Sscanf(raw, "%d", &v)
	return v, true, err
}

package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/store"
	"github.com/automaton-run/automaton/internal/survival"
)

const (
	configKeyLiquidCreditsCents = "liquid_credits_cents"
	configKeyLiquidUSDCCents    = "liquid_usdc_cents"
	configKeyInboxCursor        = "social_inbox_cursor"
	configKeyLastHeartbeat      = "last_heartbeat_at"
)

// NewHeartbeatPingTask writes a liveness timestamp. Per §4.4, it never wakes
// and is the one task that still runs at tier dead. log may be nil (quiet
// in tests); when set, each ping logs at debug level how long it has been
// since the previous one, formatted with humanize.Time.
func NewHeartbeatPingTask(db *store.DB, log *zap.Logger) Task {
	return Task{
		Name: "heartbeat_ping",
		Handler: func(ctx context.Context) (bool, string, error) {
			now := time.Now()
			if log != nil {
				if prevRaw, ok, err := db.ConfigValue(ctx, configKeyLastHeartbeat); err == nil && ok {
					if prev, err := time.Parse(time.RFC3339, prevRaw); err == nil {
						log.Debug("heartbeat", zap.String("previous", humanize.Time(prev)))
					}
				}
			}
			if err := db.SetConfigValue(ctx, configKeyLastHeartbeat, now.Format(time.RFC3339)); err != nil {
				return false, "", fmt.Errorf("heartbeat_ping: %w", err)
			}
			return false, "", nil
		},
	}
}

// CreditsFetcher reads the platform credit balance in hundredth-cents.
type CreditsFetcher func(ctx context.Context) (int64, error)

// NewCheckCreditsTask refreshes liquidCents' platform-credits component and
// re-evaluates the tier controller, waking the engine iff the evaluation
// crossed into low_compute or critical.
func NewCheckCreditsTask(db *store.DB, controller *survival.Controller, fetch CreditsFetcher) Task {
	return Task{
		Name:            "check_credits",
		CriticalAllowed: true,
		Handler: func(ctx context.Context) (bool, string, error) {
			credits, err := fetch(ctx)
			if err != nil {
				return false, "", fmt.Errorf("check_credits: %w", err)
			}
			return recombineAndEvaluate(ctx, db, controller, configKeyLiquidCreditsCents, credits)
		},
	}
}

// BalanceFetcher reads an on-chain stablecoin balance in hundredth-cents.
type BalanceFetcher func(ctx context.Context) (int64, error)

// NewCheckUSDCBalanceTask is check_credits' on-chain counterpart; the two
// components are additive into a single liquidCents signal.
func NewCheckUSDCBalanceTask(db *store.DB, controller *survival.Controller, fetch BalanceFetcher) Task {
	return Task{
		Name:            "check_usdc_balance",
		CriticalAllowed: true,
		Handler: func(ctx context.Context) (bool, string, error) {
			balance, err := fetch(ctx)
			if err != nil {
				return false, "", fmt.Errorf("check_usdc_balance: %w", err)
			}
			return recombineAndEvaluate(ctx, db, controller, configKeyLiquidUSDCCents, balance)
		},
	}
}

func recombineAndEvaluate(ctx context.Context, db *store.DB, controller *survival.Controller, changedKey string, newValue int64) (bool, string, error) {
	if err := db.SetConfigValue(ctx, changedKey, strconv.FormatInt(newValue, 10)); err != nil {
		return false, "", err
	}

	credits, err := readConfigInt(ctx, db, configKeyLiquidCreditsCents)
	if err != nil {
		return false, "", err
	}
	usdc, err := readConfigInt(ctx, db, configKeyLiquidUSDCCents)
	if err != nil {
		return false, "", err
	}

	hourlySpend, err := db.HourlySpendCents(ctx, time.Now())
	if err != nil {
		return false, "", err
	}

	before := controller.Current()
	after, changed := controller.Evaluate(survival.Signals{LiquidCents: credits + usdc, HourlySpendCents: hourlySpend})

	crossedDown := changed && core.TierRank(after) < core.TierRank(before) &&
		(after == core.TierLowCompute || after == core.TierCritical)
	if crossedDown {
		dollars := humanize.Comma((credits + usdc) / 10000)
		return true, fmt.Sprintf("tier dropped to %s (liquid funds ~$%s)", after, dollars), nil
	}
	return false, "", nil
}

func readConfigInt(ctx context.Context, db *store.DB, key string) (int64, error) {
	raw, ok, err := db.ConfigValue(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// NewCheckSocialInboxTask polls Social from the last successful cursor and
// inserts any returned messages with insert-if-absent semantics, waking iff
// at least one was newly inserted.
func NewCheckSocialInboxTask(db *store.DB, social core.Social) Task {
	return Task{
		Name: "check_social_inbox",
		Handler: func(ctx context.Context) (bool, string, error) {
			cursor, _, err := db.ConfigValue(ctx, configKeyInboxCursor)
			if err != nil {
				return false, "", fmt.Errorf("check_social_inbox: load cursor: %w", err)
			}

			messages, nextCursor, err := social.Poll(ctx, cursor)
			if err != nil {
				return false, "", fmt.Errorf("check_social_inbox: poll: %w", err)
			}

			wake := false
			for _, m := range messages {
				inserted, err := db.InsertInboxMessageIfAbsent(ctx, m)
				if err != nil {
					return false, "", fmt.Errorf("check_social_inbox: insert %s: %w", m.ID, err)
				}
				wake = wake || inserted
			}

			if nextCursor != "" {
				if err := db.SetConfigValue(ctx, configKeyInboxCursor, nextCursor); err != nil {
					return false, "", fmt.Errorf("check_social_inbox: save cursor: %w", err)
				}
			}

			if wake {
				return true, "new inbox message", nil
			}
			return false, "", nil
		},
	}
}

// NewHealthCheckTask verifies Sandbox-exec connectivity by running df there;
// it fails when the exec errors or df exits non-zero, and does not inspect
// the amount of free space df reports. Per §4.4 it never wakes the engine,
// only records failures for the scheduler's own degradation tracking.
func NewHealthCheckTask(sandbox core.SandboxExec) Task {
	return Task{
		Name:            "health_check",
		CriticalAllowed: true,
		Handler: func(ctx context.Context) (bool, string, error) {
			result, err := sandbox.Exec(ctx, "df -Pk .", 5000)
			if err != nil {
				return false, "", fmt.Errorf("health_check: sandbox exec: %w", err)
			}
			if result.ExitCode != 0 {
				return false, "", fmt.Errorf("health_check: df exited %d: %s", result.ExitCode, result.Stderr)
			}
			return false, "", nil
		},
	}
}

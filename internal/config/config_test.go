package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_EnvDefaultsApplyWhenNoOverlayFile(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test-123")
	t.Setenv("AUTOMATON_HOURLY_BUDGET_CENTS", "")

	home := t.TempDir()
	cfg, err := Load(home)
	require.NoError(t, err)

	require.Equal(t, "sk-test-123", cfg.OpenRouterAPIKey)
	require.Equal(t, int64(defaultHourlyBudget), cfg.HourlyBudgetCents)
	require.Equal(t, int64(-1), cfg.GlobalPerCallCeilingCents)
	require.True(t, cfg.EnableModelFallback)
	require.Equal(t, filepath.Join(home, "automaton.db"), cfg.DBPath)
}

func TestLoad_OverlayFileOverridesEnv(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-from-env")

	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "automaton.json"), []byte(`{"openrouter_api_key":"sk-from-file","hourly_budget_cents":999}`), 0o644))

	cfg, err := Load(home)
	require.NoError(t, err)
	require.Equal(t, "sk-from-file", cfg.OpenRouterAPIKey)
	require.Equal(t, int64(999), cfg.HourlyBudgetCents)
}

func TestLoad_MalformedOverlayFileReturnsError(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "automaton.json"), []byte(`{not json`), 0o644))

	_, err := Load(home)
	require.Error(t, err)
}

func TestConfig_DerivedPaths(t *testing.T) {
	home := t.TempDir()
	cfg, err := Load(home)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(home, "skills"), cfg.SkillsDir())
	require.Equal(t, filepath.Join(home, "CREATOR_MESSAGE.md"), cfg.CreatorMessagePath())
}

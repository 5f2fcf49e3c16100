// Package config loads the automaton's runtime configuration: environment
// first, then an automaton.json overlay in the agent's home directory.
// Grounded on the teacher's config.New(configDir) (env defaults, struct
// unmarshal of a JSON file overwriting only the keys it sets), generalized
// from a single chat-bot's API key/model pair to the automaton's full set
// of router, survival, scheduler, and provider knobs.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds every operator-tunable knob. Secrets are read from the
// environment or the overlay file at runtime; never committed.
type Config struct {
	// AgentHome is where automaton.json, automaton.db, CREATOR_MESSAGE.md,
	// and skills/ live.
	AgentHome string `json:"-"`
	DBPath    string `json:"-"`

	// Inference Router.
	OpenRouterAPIKey          string `json:"openrouter_api_key"`
	OpenRouterBaseURL         string `json:"openrouter_base_url"`
	GeminiAPIKey              string `json:"gemini_api_key"`
	GlobalPerCallCeilingCents int64  `json:"global_per_call_ceiling_cents"`
	HourlyBudgetCents         int64  `json:"hourly_budget_cents"`
	EnableModelFallback       bool   `json:"enable_model_fallback"`

	// Survival Controller / Scheduler.
	LowComputeFactor int `json:"low_compute_factor"`

	// Identity.
	GenesisPrompt string `json:"genesis_prompt"`
	SoulPath      string `json:"-"`

	// External collaborators.
	SandboxBaseDir      string `json:"sandbox_base_dir"`
	SocialRelayURL      string `json:"social_relay_url"`
	SocialAPIKey        string `json:"social_api_key"`
	ChainRPCEndpoint    string `json:"chain_rpc_endpoint"`
	USDCContractAddress string `json:"usdc_contract_address"`
	WalletKeyPath       string `json:"-"`

	ParentAddress string `json:"parent_address"`
}

const (
	envAgentHome        = "AUTOMATON_HOME"
	defaultCeilingCents = -1    // unbounded; the matrix and tier controller still apply
	defaultHourlyBudget = 50000 // $5.00/hr, in hundredth-cents
	defaultLowComputeFactor = 4
)

// DefaultAgentHome returns ./.automaton if present, else ~/.automaton.
func DefaultAgentHome() string {
	cwd, _ := os.Getwd()
	local := filepath.Join(cwd, ".automaton")
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".automaton")
}

// Load builds Config from the environment, then overlays automaton.json
// from agentHome if present. agentHome may be empty to use the
// AUTOMATON_HOME env var or DefaultAgentHome().
func Load(agentHome string) (*Config, error) {
	if agentHome == "" {
		if d := os.Getenv(envAgentHome); d != "" {
			agentHome = d
		} else {
			agentHome = DefaultAgentHome()
		}
	}

	cfg := &Config{
		AgentHome:                 agentHome,
		DBPath:                    filepath.Join(agentHome, "automaton.db"),
		OpenRouterAPIKey:          os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:         envOr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		GeminiAPIKey:              os.Getenv("GEMINI_API_KEY"),
		GlobalPerCallCeilingCents: envInt64("AUTOMATON_PER_CALL_CEILING_CENTS", defaultCeilingCents),
		HourlyBudgetCents:         envInt64("AUTOMATON_HOURLY_BUDGET_CENTS", defaultHourlyBudget),
		EnableModelFallback:       envBool("AUTOMATON_ENABLE_MODEL_FALLBACK", true),
		LowComputeFactor:          int(envInt64("AUTOMATON_LOW_COMPUTE_FACTOR", defaultLowComputeFactor)),
		GenesisPrompt:             os.Getenv("AUTOMATON_GENESIS_PROMPT"),
		SoulPath:                  filepath.Join(agentHome, "SOUL.md"),
		SandboxBaseDir:            envOr("AUTOMATON_SANDBOX_DIR", filepath.Join(agentHome, "sandbox")),
		SocialRelayURL:            os.Getenv("AUTOMATON_SOCIAL_RELAY_URL"),
		SocialAPIKey:              os.Getenv("AUTOMATON_SOCIAL_API_KEY"),
		ChainRPCEndpoint:          os.Getenv("AUTOMATON_CHAIN_RPC_ENDPOINT"),
		USDCContractAddress:       os.Getenv("AUTOMATON_USDC_CONTRACT_ADDRESS"),
		WalletKeyPath:             filepath.Join(agentHome, "wallet.key"),
		ParentAddress:             os.Getenv("AUTOMATON_PARENT_ADDRESS"),
	}

	overlayPath := filepath.Join(agentHome, "automaton.json")
	if data, err := os.ReadFile(overlayPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return cfg, nil
}

// SkillsDir is where skills/<name>/SKILL.md files live.
func (c *Config) SkillsDir() string {
	return filepath.Join(c.AgentHome, "skills")
}

// CreatorMessagePath is the drop file the Turn Engine's trigger (c) watches.
func (c *Config) CreatorMessagePath() string {
	return filepath.Join(c.AgentHome, "CREATOR_MESSAGE.md")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

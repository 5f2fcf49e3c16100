package skills

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automaton-run/automaton/internal/core"
)

const sampleSkill = `---
name: memecoin-scout
description: Scans new token listings for survival-relevant opportunities
auto-activate: true
requires:
  bins: [curl]
  env: [SCOUT_API_KEY]
---

Watch the configured feeds and flag tokens matching the scout criteria.
Never act on a flagged token without explicit confirmation.
`

func TestParseSkillFile_ExtractsFrontmatterAndBody(t *testing.T) {
	s, err := ParseSkillFile([]byte(sampleSkill), "skills/memecoin-scout/SKILL.md")
	require.NoError(t, err)

	require.Equal(t, "memecoin-scout", s.Name)
	require.Equal(t, "Scans new token listings for survival-relevant opportunities", s.Description)
	require.True(t, s.AutoActivate)
	require.True(t, s.Enabled)
	require.Equal(t, []string{"curl"}, s.Requires.Bins)
	require.Equal(t, []string{"SCOUT_API_KEY"}, s.Requires.Env)
	require.Contains(t, s.Instructions, "Watch the configured feeds")
	require.Equal(t, "skills/memecoin-scout/SKILL.md", s.Source)
}

func TestParseSkillFile_RejectsMissingName(t *testing.T) {
	_, err := ParseSkillFile([]byte("---\ndescription: no name here\n---\nbody\n"), "bad.md")
	require.Error(t, err)
}

func TestParseSkillFile_RejectsInvalidNameCharacters(t *testing.T) {
	_, err := ParseSkillFile([]byte("---\nname: Not Valid!\n---\nbody\n"), "bad.md")
	require.Error(t, err)
}

func TestParseSkillFile_RejectsMissingFrontmatterDelimiter(t *testing.T) {
	_, err := ParseSkillFile([]byte("name: foo\nno delimiters here"), "bad.md")
	require.Error(t, err)
}

func TestRenderSkillFile_RoundTripsNameDescriptionAndBody(t *testing.T) {
	original := core.Skill{
		Name:         "heartbeat-log",
		Description:  "Writes a durable log line each heartbeat",
		Instructions: "Log the current tier and liquid balance on every heartbeat tick.",
		AutoActivate: true,
		Requires:     core.SkillRequires{Bins: []string{"jq"}},
	}

	rendered := RenderSkillFile(original)
	parsed, err := ParseSkillFile(rendered, "roundtrip.md")
	require.NoError(t, err)

	require.Equal(t, original.Name, parsed.Name)
	require.Equal(t, original.Description, parsed.Description)
	require.Equal(t, original.AutoActivate, parsed.AutoActivate)
	require.Equal(t, original.Requires.Bins, parsed.Requires.Bins)
	require.Equal(t, original.Instructions, parsed.Instructions)
}

func TestApplyRequiresGate_DisablesOnMissingBinary(t *testing.T) {
	s := core.Skill{Name: "x", Enabled: true, Requires: core.SkillRequires{Bins: []string{"nonexistent-binary"}}}
	checker := RequirementChecker{
		LookPath: func(bin string) (string, error) { return "", errNotFound },
		LookEnv:  func(key string) (string, bool) { return "", false },
	}
	gated := ApplyRequiresGate(s, checker)
	require.False(t, gated.Enabled)
}

func TestApplyRequiresGate_DisablesOnMissingEnvVar(t *testing.T) {
	s := core.Skill{Name: "x", Enabled: true, Requires: core.SkillRequires{Env: []string{"MISSING_VAR"}}}
	checker := RequirementChecker{
		LookPath: func(bin string) (string, error) { return "/usr/bin/" + bin, nil },
		LookEnv:  func(key string) (string, bool) { return "", false },
	}
	gated := ApplyRequiresGate(s, checker)
	require.False(t, gated.Enabled)
}

func TestApplyRequiresGate_StaysEnabledWhenAllSatisfied(t *testing.T) {
	s := core.Skill{Name: "x", Enabled: true, Requires: core.SkillRequires{Bins: []string{"curl"}, Env: []string{"KEY"}}}
	checker := RequirementChecker{
		LookPath: func(bin string) (string, error) { return "/usr/bin/" + bin, nil },
		LookEnv:  func(key string) (string, bool) { return "value", true },
	}
	gated := ApplyRequiresGate(s, checker)
	require.True(t, gated.Enabled)
}

type notFoundError struct{}

func (notFoundError) Error() string { return "executable file not found in $PATH" }

var errNotFound = notFoundError{}

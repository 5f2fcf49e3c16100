package skills

import (
	"os"
	"os/exec"

	"github.com/automaton-run/automaton/internal/core"
)

// RequirementChecker abstracts the PATH/env lookups ApplyRequiresGate needs,
// so tests don't depend on the real environment.
type RequirementChecker struct {
	LookPath func(bin string) (string, error)
	LookEnv  func(key string) (string, bool)
}

// DefaultRequirementChecker checks against the real PATH and environment.
func DefaultRequirementChecker() RequirementChecker {
	return RequirementChecker{LookPath: exec.LookPath, LookEnv: os.LookupEnv}
}

// ApplyRequiresGate disables s.Enabled if any required binary is missing
// from PATH or any required env var is unset, per spec: "Skills whose
// requires is unsatisfied ... are loaded but left disabled."
func ApplyRequiresGate(s core.Skill, checker RequirementChecker) core.Skill {
	for _, bin := range s.Requires.Bins {
		if _, err := checker.LookPath(bin); err != nil {
			s.Enabled = false
			return s
		}
	}
	for _, env := range s.Requires.Env {
		if v, ok := checker.LookEnv(env); !ok || v == "" {
			s.Enabled = false
			return s
		}
	}
	return s
}

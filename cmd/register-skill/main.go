// register-skill writes a SKILL.md into the agent's skills directory and
// syncs it into the store, for operators bootstrapping a skill by hand
// instead of waiting for the automaton to author one via write_skill.
// Usage: register-skill <name> <description> <instructions-file>
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/automaton-run/automaton/internal/config"
	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/skills"
	"github.com/automaton-run/automaton/internal/store"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "usage: register-skill <name> <description> <instructions-file>\n")
		os.Exit(1)
	}
	name := os.Args[1]
	description := os.Args[2]
	instructionsPath := os.Args[3]

	instructions, err := os.ReadFile(instructionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read instructions file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	mgr := skills.NewManager(cfg.SkillsDir(), db)
	skill := core.Skill{
		Name:         name,
		Description:  description,
		Instructions: string(instructions),
		AutoActivate: false,
		Enabled:      true,
		Source:       "operator",
	}
	if err := mgr.WriteSkill(ctx, skill); err != nil {
		fmt.Fprintf(os.Stderr, "write skill: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("registered", name)
}

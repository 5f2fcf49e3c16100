package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/store"
)

// Manager owns the on-disk skills directory and keeps the state store's
// skill rows synced with it. Adapted from the teacher's skills.Manager
// (which owned a ConfigDir and installed CLI tools by shelling out);
// here the directory holds declarative SKILL.md files instead of
// installable binaries, and "install" becomes "load + requires-gate +
// upsert".
type Manager struct {
	dir     string
	db      *store.DB
	checker RequirementChecker
	clock   func() time.Time
}

// NewManager constructs a Manager rooted at dir (typically
// "<agent-home>/skills").
func NewManager(dir string, db *store.DB) *Manager {
	return &Manager{dir: dir, db: db, checker: DefaultRequirementChecker(), clock: time.Now}
}

// LoadAll scans dir for `<name>/SKILL.md` files, parses each, applies the
// requires-gate, and upserts it into the store. It returns the skills it
// loaded. A skill already present in the store with enabled=false because
// an operator manually disabled it stays disabled even if its requires are
// now satisfied — disk load only ever sets Enabled=false (gate failure),
// never forces Enabled=true over a stored false.
func (m *Manager) LoadAll(ctx context.Context) ([]core.Skill, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("skills: read dir %s: %w", m.dir, err)
	}

	var loaded []core.Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(m.dir, entry.Name(), "SKILL.md")
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("skills: read %s: %w", path, err)
		}

		skill, err := ParseSkillFile(raw, path)
		if err != nil {
			return nil, err
		}
		skill = ApplyRequiresGate(skill, m.checker)

		if existing, ok, err := m.existingDisabled(ctx, skill.Name); err != nil {
			return nil, err
		} else if ok && existing {
			skill.Enabled = false
		}

		skill.InstalledAt = m.clock()
		if err := m.db.UpsertSkill(ctx, skill); err != nil {
			return nil, fmt.Errorf("skills: upsert %s: %w", skill.Name, err)
		}
		loaded = append(loaded, skill)
	}

	return loaded, nil
}

// existingDisabled reports whether a skill by that name is already stored
// with enabled=false — used to preserve an operator's manual disable across
// reloads, distinct from a requires-gate disable (which disk re-parsing
// would otherwise clear once the requirement becomes satisfied... except we
// choose to keep it sticky per the doc comment on LoadAll).
func (m *Manager) existingDisabled(ctx context.Context, name string) (disabled bool, found bool, err error) {
	all, err := m.db.AllSkills(ctx)
	if err != nil {
		return false, false, err
	}
	for _, s := range all {
		if s.Name == name {
			return !s.Enabled, true, nil
		}
	}
	return false, false, nil
}

// WriteSkill renders and writes a skill to disk, then upserts it into the
// store. Source is recorded as "agent" (self-authored) unless the caller
// set one.
func (m *Manager) WriteSkill(ctx context.Context, s core.Skill) error {
	dir := filepath.Join(m.dir, s.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("skills: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, "SKILL.md")
	if err := os.WriteFile(path, RenderSkillFile(s), 0o644); err != nil {
		return fmt.Errorf("skills: write %s: %w", path, err)
	}

	if s.Source == "" {
		s.Source = "agent"
	}
	s = ApplyRequiresGate(s, m.checker)
	s.InstalledAt = m.clock()
	return m.db.UpsertSkill(ctx, s)
}

// ActiveSkills returns the enabled, auto-activating skills for system
// prompt composition (§4.5's "Active Skill Instructions" layer).
func (m *Manager) ActiveSkills(ctx context.Context) ([]core.Skill, error) {
	return m.db.ActiveSkills(ctx)
}

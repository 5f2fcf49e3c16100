// Package skills loads and persists skill files: `skills/<name>/SKILL.md`,
// a YAML frontmatter block followed by a Markdown instruction body. Loading
// and reload semantics are grounded on the teacher's skills.Manager
// (install/check-command skill registry), generalized from "installable CLI
// tool" to "prompt capability with a requires{} satisfaction gate", and on
// codenerd's prompt.AtomLoader for the YAML-into-struct parsing shape.
package skills

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/automaton-run/automaton/internal/core"
)

var nameRx = regexp.MustCompile(`^[a-z0-9_-]+$`)

// frontmatter mirrors the recognized SKILL.md header fields exactly; unknown
// fields are ignored when parsing and are not written back by
// RenderSkillFile.
type frontmatter struct {
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description,omitempty"`
	AutoActivate bool               `yaml:"auto-activate,omitempty"`
	Requires     *core.SkillRequires `yaml:"requires,omitempty"`
}

const frontmatterDelim = "---"

// ParseSkillFile parses a SKILL.md file's raw bytes into a core.Skill.
// source is recorded verbatim as core.Skill.Source (a file path, or
// "agent" for a skill the automaton authored itself). Enabled is always
// true at parse time; requirement gating is applied by the caller via
// ApplyRequiresGate, since PATH/env lookups are an I/O concern separate
// from parsing.
func ParseSkillFile(raw []byte, source string) (core.Skill, error) {
	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return core.Skill{}, err
	}

	var hdr frontmatter
	if err := yaml.Unmarshal(fm, &hdr); err != nil {
		return core.Skill{}, fmt.Errorf("skills: parse frontmatter of %s: %w", source, err)
	}
	if hdr.Name == "" {
		return core.Skill{}, fmt.Errorf("skills: %s: frontmatter missing required field \"name\"", source)
	}
	if !nameRx.MatchString(hdr.Name) {
		return core.Skill{}, fmt.Errorf("skills: %s: name %q must match %s", source, hdr.Name, nameRx.String())
	}

	requires := core.SkillRequires{}
	if hdr.Requires != nil {
		requires = *hdr.Requires
	}

	return core.Skill{
		Name:         hdr.Name,
		Description:  hdr.Description,
		Instructions: strings.TrimSpace(string(body)),
		AutoActivate: hdr.AutoActivate,
		Enabled:      true,
		Requires:     requires,
		Source:       source,
	}, nil
}

// RenderSkillFile re-serializes a core.Skill back into SKILL.md's
// frontmatter-plus-body shape.
func RenderSkillFile(s core.Skill) []byte {
	hdr := frontmatter{
		Name:         s.Name,
		Description:  s.Description,
		AutoActivate: s.AutoActivate,
	}
	if len(s.Requires.Bins) > 0 || len(s.Requires.Env) > 0 {
		hdr.Requires = &s.Requires
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	_ = enc.Encode(hdr)
	_ = enc.Close()

	var out bytes.Buffer
	out.WriteString(frontmatterDelim + "\n")
	out.Write(buf.Bytes())
	out.WriteString(frontmatterDelim + "\n\n")
	out.WriteString(s.Instructions)
	out.WriteString("\n")
	return out.Bytes()
}

// splitFrontmatter separates a `---\n...\n---\n` header block from its body.
func splitFrontmatter(raw []byte) (fm []byte, body []byte, err error) {
	text := string(raw)
	if !strings.HasPrefix(text, frontmatterDelim) {
		return nil, nil, fmt.Errorf("skills: file does not begin with %q frontmatter delimiter", frontmatterDelim)
	}

	rest := strings.TrimPrefix(text, frontmatterDelim+"\n")
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end == -1 {
		return nil, nil, fmt.Errorf("skills: unterminated frontmatter block (missing closing %q)", frontmatterDelim)
	}

	fmText := rest[:end]
	bodyText := rest[end+len("\n"+frontmatterDelim):]
	bodyText = strings.TrimPrefix(bodyText, "\n")

	return []byte(fmText), []byte(bodyText), nil
}

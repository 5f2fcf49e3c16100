package sanitizer

import (
	"regexp"
	"strings"
)

// Detectors is the set of fired booleans from §4.1's six checks. Each
// detector is a pure predicate over the raw text; order does not matter.
type Detectors struct {
	Instruction bool
	Authority   bool
	Boundary    bool
	Obfuscation bool
	Financial   bool
	SelfHarm    bool
}

// Names returns the names of the detectors that fired, in a stable order,
// for the Result.Checks field.
func (d Detectors) Names() []string {
	var out []string
	if d.Instruction {
		out = append(out, "instruction_patterns")
	}
	if d.Authority {
		out = append(out, "authority_claims")
	}
	if d.Boundary {
		out = append(out, "boundary_manipulation")
	}
	if d.Obfuscation {
		out = append(out, "obfuscation")
	}
	if d.Financial {
		out = append(out, "financial_manipulation")
	}
	if d.SelfHarm {
		out = append(out, "self_harm_instructions")
	}
	return out
}

var (
	instructionPhrases = []string{
		"ignore previous", "ignore all previous", "ignore your previous",
		"new instructions:", "disregard previous", "override safety",
		"execute the following",
	}
	instructionMarkerRx = regexp.MustCompile(`(?i)\[inst\]|<<sys>>|^\s*(system|assistant)\s*:`)

	authorityPhrases = []string{
		"i am your creator", "i am your admin", "i am your owner",
		"admin override", "emergency override", "this is an emergency override",
		"official message from the platform", "message from platform staff",
		"i work for the platform",
	}

	boundaryTokens = []string{
		"</system>", "<system>", "```system", "[system]", "end of prompt",
	}
	boundaryControlChars = []rune{0x00, 0x200B, 0x200C, 0x200D, 0xFEFF}

	base64RunRx  = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)
	unicodeEscRx = regexp.MustCompile(`\\u[0-9a-fA-F]{4}`)
	obfuscationPhrases = []string{
		"rot13", "base64_decode", "atob(", "btoa(",
	}

	financialPhrases = []string{
		"transfer all", "withdraw all", "drain the wallet", "drain your wallet",
		"send all", "transfer your funds", "withdraw your funds",
	}
	hexAddressRx = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

	selfHarmPhrases = []string{
		"delete the database", "delete your database", "delete the state",
		"delete your state", "delete your wallet", "delete your keys",
		"delete your identity", "drop your identity", "disable heartbeat",
		"rm -rf", "drop table",
	}
)

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Detect runs all six §4.1 checks against raw text and returns the fired set.
func Detect(raw string) Detectors {
	lower := strings.ToLower(raw)

	var d Detectors
	d.Instruction = containsAny(lower, instructionPhrases) || instructionMarkerRx.MatchString(raw)
	d.Authority = containsAny(lower, authorityPhrases)

	d.Boundary = containsAny(lower, boundaryTokens)
	if !d.Boundary {
		for _, r := range raw {
			for _, c := range boundaryControlChars {
				if r == c {
					d.Boundary = true
					break
				}
			}
			if d.Boundary {
				break
			}
		}
	}

	d.Obfuscation = containsAny(lower, obfuscationPhrases) ||
		base64RunRx.MatchString(raw) ||
		len(unicodeEscRx.FindAllString(raw, -1)) > 5

	d.Financial = containsAny(lower, financialPhrases) || hexAddressRx.MatchString(raw)

	d.SelfHarm = containsAny(lower, selfHarmPhrases)

	return d
}

package directive

import (
	"regexp"
	"strconv"
	"strings"
)

// tagPattern matches one bracketed tag: a name, a colon, and a body that runs
// to the closing bracket. The body is split on pipes afterwards.
var tagPattern = regexp.MustCompile(`\[\s*([A-Za-z_]+)\s*:([^\]]*)\]`)

// Result holds the outcome of scanning one block of narrative text.
type Result struct {
	// Directives are the successfully decoded tags, in text order.
	// Order matters: later directives may reference state changed by
	// earlier ones.
	Directives []Directive
	// Malformed counts recognized tags whose fields failed to decode.
	// Unrecognized tag names are ignored entirely and not counted.
	Malformed int
}

// Parse scans text for directive tags and decodes each into a typed
// Directive. Malformed tags are dropped and counted; Parse never fails.
//
// Postcondition: Result.Directives preserves the order tags appear in text.
func Parse(text string) Result {
	var res Result
	for _, m := range tagPattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToUpper(strings.TrimSpace(m[1]))
		fields := splitFields(m[2])

		var (
			d  Directive
			ok bool
		)
		switch name {
		case "XP":
			d, ok = parseExperience(fields)
		case "MONSTER_DEFEATED":
			d, ok = parseMonsterDefeated(fields)
		case "STATUS":
			d, ok = parseStatus(fields)
		case "GOLD":
			d, ok = parseGold(fields)
		case "DAMAGE":
			d, ok = parseDamage(fields)
		case "REPUTATION":
			d, ok = parseReputation(fields)
		default:
			continue // not a directive tag; leave prose alone
		}

		if !ok {
			res.Malformed++
			continue
		}
		res.Directives = append(res.Directives, d)
	}
	return res
}

// splitFields splits a tag body on pipes and trims each field.
func splitFields(body string) []string {
	parts := strings.Split(body, "|")
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = strings.TrimSpace(p)
	}
	return fields
}

// parseAmount parses a non-negative integer, tolerating surrounding
// whitespace.
func parseAmount(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseExperience(fields []string) (Directive, bool) {
	if len(fields) != 2 || fields[0] == "" {
		return nil, false
	}
	amount, ok := parseAmount(fields[1])
	if !ok {
		return nil, false
	}
	return ExperienceAward{TargetName: fields[0], Amount: amount}, true
}

// parseMonsterDefeated decodes
// "<monster> | XP: <amount> | participants: <n1>,<n2>,...".
// The "XP:" and "participants:" field prefixes are case-insensitive.
func parseMonsterDefeated(fields []string) (Directive, bool) {
	if len(fields) != 3 || fields[0] == "" {
		return nil, false
	}

	xpField, ok := stripPrefixFold(fields[1], "XP:")
	if !ok {
		return nil, false
	}
	amount, ok := parseAmount(xpField)
	if !ok {
		return nil, false
	}

	listField, ok := stripPrefixFold(fields[2], "participants:")
	if !ok {
		return nil, false
	}
	var participants []string
	for _, name := range strings.Split(listField, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			participants = append(participants, name)
		}
	}
	if len(participants) == 0 {
		return nil, false
	}

	return MonsterDefeated{
		MonsterName:  fields[0],
		Amount:       amount,
		Participants: participants,
	}, true
}

func parseStatus(fields []string) (Directive, bool) {
	if len(fields) < 2 || len(fields) > 3 || fields[0] == "" || fields[1] == "" {
		return nil, false
	}
	rounds := 0
	if len(fields) == 3 {
		var ok bool
		rounds, ok = parseAmount(fields[2])
		if !ok {
			return nil, false
		}
	}
	return StatusApplied{TargetName: fields[0], Effect: fields[1], Rounds: rounds}, true
}

func parseGold(fields []string) (Directive, bool) {
	if len(fields) != 2 || fields[0] == "" {
		return nil, false
	}
	amount, ok := parseAmount(fields[1])
	if !ok {
		return nil, false
	}
	return GoldAward{TargetName: fields[0], Amount: amount}, true
}

func parseDamage(fields []string) (Directive, bool) {
	if len(fields) != 2 || fields[0] == "" {
		return nil, false
	}
	amount, ok := parseAmount(fields[1])
	if !ok {
		return nil, false
	}
	return DamageDealt{TargetName: fields[0], Amount: amount}, true
}

// parseReputation is the one tag whose amount may be negative.
func parseReputation(fields []string) (Directive, bool) {
	if len(fields) != 2 || fields[0] == "" {
		return nil, false
	}
	amount, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return nil, false
	}
	return ReputationChange{TargetName: fields[0], Amount: amount}, true
}

// stripPrefixFold removes a case-insensitive prefix and trims the remainder.
// Returns ("", false) if s does not start with the prefix.
func stripPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(prefix):]), true
}

// Package translate hides syntax and result-key differences between
// firmware dialects: commands are rewritten through an ordered pattern
// table, and structured result keys are renamed to a common convention.
package translate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/morganhein/dutcli/logger"
	"github.com/morganhein/dutcli/schema"
)

var log schema.Logger

func init() {
	log = logger.Log
}

// CannotTranslate marks a command that has no equivalent in the target
// dialect. Callers should treat it as an unsupported operation.
const CannotTranslate = "CAN NOT TRANSLATE"

// Rule rewrites commands matching Pattern (anchored at the start) into
// Template, which may reference capture groups as $1, $2, ...
type Rule struct {
	Pattern  *regexp.Regexp
	Template string
}

// Table is a dialect translator: an ordered rule list for commands plus a
// key function for structured results.
type Table struct {
	rules []Rule
	key   func(string) string
}

// CLI rewrites each command through the first matching rule; commands with
// no matching rule pass through unchanged.
func (t *Table) CLI(cmds ...string) []string {
	out := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		translated := t.translate(cmd)
		if translated != cmd {
			log.Debugf("translated %q to %q", cmd, translated)
		}
		out = append(out, translated)
	}
	return out
}

func (t *Table) translate(cmd string) string {
	for _, r := range t.rules {
		loc := r.Pattern.FindStringSubmatchIndex(cmd)
		if loc != nil && loc[0] == 0 {
			return string(r.Pattern.ExpandString(nil, r.Template, cmd, loc))
		}
	}
	return cmd
}

// JSON renames every key of a decoded result, recursing into nested
// objects. Non-object values pass through unchanged.
func (t *Table) JSON(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	out := make(map[string]interface{}, len(m))
	for k, val := range m {
		out[t.key(k)] = t.JSON(val)
	}
	return out
}

// MOS standardizes MOS config syntax and camelCased result keys to their
// EOS equivalents.
func MOS() *Table {
	return &Table{
		rules: []Rule{
			{regexp.MustCompile(`interface ap1/(.*)`), "interface ap$1"},
			{regexp.MustCompile(`l1 source interface ap1/(.*)`), "source ap$1"},
			{regexp.MustCompile(`l1 source interface ap(.*)`), CannotTranslate},
			{regexp.MustCompile(`l1 source interface (.*)`), "source $1"},
			{regexp.MustCompile(`l1 source mac`), "source mac"},
			{regexp.MustCompile(`no l1 source`), "no source"},
			{regexp.MustCompile(`bash sudo cortina`), CannotTranslate},
			{regexp.MustCompile(`traffic-loopback source network device phy`), "loopback internal"},
			{regexp.MustCompile(`traffic-loopback source system device phy`), "loopback"},
			{regexp.MustCompile(`no traffic-loopback`), "no loopback"},
		},
		key: snakeKey,
	}
}

// Identity translates nothing; for dialects that already speak the common
// convention.
func Identity() *Table {
	return &Table{key: func(k string) string { return k }}
}

// snakeKey converts each /-separated segment of a camelCased key to
// snake_case.
func snakeKey(k string) string {
	parts := strings.Split(k, "/")
	for i, w := range parts {
		parts[i] = camelToSnake(w)
	}
	return strings.Join(parts, "/")
}

func camelToSnake(w string) string {
	var b strings.Builder
	for i, r := range w {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Package tagmatch recognizes short known sequences (multiplex tags, flanks)
// near the start of noisy reads. Matching is done in two tiers: a fast,
// anchored regular expression per tag that tolerates one substitution in the
// tag and one in the flank, and a fallback that locates the flank alone and
// scores the preceding bases against every known tag.
package tagmatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/grailbio/base/errors"
)

// Wildcard is the regexp fragment substituted for one position of a literal.
const Wildcard = "."

// OneSnip returns a regexp fragment that accepts lit, or any sequence obtained
// from lit by replacing exactly one position with a wildcard. It models single
// substitution errors only; insertions and deletions are not tolerated. The
// fragment is a non-capturing group, so it can be embedded in larger patterns
// without renumbering their groups.
func OneSnip(lit string) string {
	if lit == "" {
		return ""
	}
	alts := make([]string, 0, len(lit)+1)
	alts = append(alts, regexp.QuoteMeta(lit))
	for i := 0; i < len(lit); i++ {
		alts = append(alts, regexp.QuoteMeta(lit[:i])+Wildcard+regexp.QuoteMeta(lit[i+1:]))
	}
	return "(?:" + strings.Join(alts, "|") + ")"
}

// TagMatcher recognizes one known tag anchored at the read start:
// a UMI of umiMin..umiMax bases, the tag with at most one substitution, then
// the flank with at most one substitution.
type TagMatcher struct {
	tag Tag
	re  *regexp.Regexp
}

// NewTagMatcher builds the anchored matcher for tag followed by flank.
func NewTagMatcher(tag Tag, flank string, umiMin, umiMax int) (*TagMatcher, error) {
	if umiMin < 0 || umiMax < umiMin {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("tagmatch: invalid UMI length range %d-%d", umiMin, umiMax))
	}
	expr := fmt.Sprintf("^(.{%d,%d})(%s)(%s)", umiMin, umiMax, OneSnip(tag.Seq), OneSnip(flank))
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, fmt.Sprintf("tagmatch: compile %q", expr))
	}
	return &TagMatcher{tag: tag, re: re}, nil
}

// Tag returns the tag recognized by the matcher.
func (m *TagMatcher) Tag() Tag { return m.tag }

// Match tries the matcher against seq. On success it returns the UMI, the
// bases that matched the tag, and the offset at which the flank starts.
func (m *TagMatcher) Match(seq string) (umi, actual string, flankStart int, ok bool) {
	loc := m.re.FindStringSubmatchIndex(seq)
	if loc == nil {
		return "", "", 0, false
	}
	return seq[loc[2]:loc[3]], seq[loc[4]:loc[5]], loc[5], true
}

// FlankMatcher finds the prefix of a read that ends exactly where the flank
// begins, with the prefix length restricted to [minLen, maxLen]. It is the
// fallback used when no TagMatcher accepts a read: the returned prefix holds
// the UMI followed by a (possibly corrupted) tag.
type FlankMatcher struct {
	re *regexp.Regexp
}

// NewFlankMatcher builds the fallback matcher for flank.
func NewFlankMatcher(flank string, minLen, maxLen int) (*FlankMatcher, error) {
	if flank == "" {
		return nil, errors.E(errors.Invalid, "tagmatch: empty flank")
	}
	if minLen < 0 || maxLen < minLen {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("tagmatch: invalid prefix length range %d-%d", minLen, maxLen))
	}
	// RE2 has no lookahead, so the flank is matched but only the prefix group
	// is reported.
	expr := fmt.Sprintf("^(.{%d,%d})%s", minLen, maxLen, OneSnip(flank))
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, fmt.Sprintf("tagmatch: compile %q", expr))
	}
	return &FlankMatcher{re: re}, nil
}

// Match returns the prefix of seq preceding the flank.
func (m *FlankMatcher) Match(seq string) (prefix string, ok bool) {
	loc := m.re.FindStringSubmatchIndex(seq)
	if loc == nil {
		return "", false
	}
	return seq[loc[2]:loc[3]], true
}

package tagmatch

// Match describes how a read matched a known tag.
type Match struct {
	// Tag is the known tag.
	Tag Tag
	// Actual is the read's bases that were matched to Tag.
	Actual string
	// UMI is the read prefix preceding the tag.
	UMI string
	// FlankStart is the read offset where the flank following the tag begins.
	FlankStart int
	// Fallback is true if the match came from the flank-and-score tier.
	Fallback bool
}

// TagSet matches reads against an ordered list of known tags that are all
// followed by the same flank.
type TagSet struct {
	tags     []Tag
	matchers []*TagMatcher
	flank    *FlankMatcher
	scorer   Scorer
}

// NewTagSet builds the matchers for tags. The fallback prefix window covers
// umiMin+shortest tag to umiMax+longest tag.
func NewTagSet(tags []Tag, flank string, umiMin, umiMax int, scorer Scorer) (*TagSet, error) {
	s := &TagSet{tags: tags, scorer: scorer}
	minTag, maxTag := -1, 0
	for _, tag := range tags {
		m, err := NewTagMatcher(tag, flank, umiMin, umiMax)
		if err != nil {
			return nil, err
		}
		s.matchers = append(s.matchers, m)
		if minTag < 0 || len(tag.Seq) < minTag {
			minTag = len(tag.Seq)
		}
		if len(tag.Seq) > maxTag {
			maxTag = len(tag.Seq)
		}
	}
	if minTag < 0 {
		minTag = 0
	}
	fm, err := NewFlankMatcher(flank, umiMin+minTag, umiMax+maxTag)
	if err != nil {
		return nil, err
	}
	s.flank = fm
	return s, nil
}

// Tags returns the known tags in matching order.
func (s *TagSet) Tags() []Tag { return s.tags }

// Match finds the tag at the start of seq. The per-tag matchers are tried in
// list order and the first success wins. Otherwise the flank is located and
// the bases before it are scored against every tag.
func (s *TagSet) Match(seq string) (Match, bool) {
	for _, m := range s.matchers {
		if umi, actual, flankStart, ok := m.Match(seq); ok {
			return Match{Tag: m.Tag(), Actual: actual, UMI: umi, FlankStart: flankStart}, true
		}
	}
	prefix, ok := s.flank.Match(seq)
	if !ok {
		return Match{}, false
	}
	i, _, ok := s.scorer.Best(prefix, s.tags)
	if !ok {
		return Match{}, false
	}
	tag := s.tags[i]
	split := len(prefix) - len(tag.Seq)
	if !s.scorer.TrimToTag || split < 0 {
		split = 0
	}
	return Match{
		Tag:        tag,
		Actual:     prefix[split:],
		UMI:        prefix[:split],
		FlankStart: len(prefix),
		Fallback:   true,
	}, true
}

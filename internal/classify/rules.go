package classify

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/JaimeStill/docket/internal/config"
)

type route struct {
	tag      string
	keywords []string
}

type tier struct {
	name     string
	rank     int
	keywords []string
}

// ruleSet is the compiled form of config.Rules: keywords lower-cased,
// empty keywords dropped, tiers sorted by numeric rank.
type ruleSet struct {
	fallback string
	routes   []route
	tiers    []tier
}

func compile(rules config.Rules) (*ruleSet, error) {
	rs := &ruleSet{fallback: rules.FallbackTag}

	for _, r := range rules.Routes {
		rs.routes = append(rs.routes, route{tag: r.Tag, keywords: normalize(r.Keywords)})
	}

	for _, p := range rules.Priorities {
		rank, err := strconv.Atoi(strings.TrimPrefix(p.Tier, "P"))
		if err != nil || !strings.HasPrefix(p.Tier, "P") || rank < 1 {
			return nil, fmt.Errorf("invalid priority tier %q", p.Tier)
		}
		rs.tiers = append(rs.tiers, tier{name: p.Tier, rank: rank, keywords: normalize(p.Keywords)})
	}
	if len(rs.tiers) == 0 {
		return nil, fmt.Errorf("no priority tiers configured")
	}

	slices.SortStableFunc(rs.tiers, func(a, b tier) int {
		return cmp.Compare(a.rank, b.rank)
	})
	return rs, nil
}

func (rs *ruleSet) lowest() string {
	return rs.tiers[len(rs.tiers)-1].name
}

// Tags lists the configured route tags in rule order, followed by the fallback.
func (rs *ruleSet) tags() []string {
	tags := make([]string, 0, len(rs.routes)+1)
	for _, r := range rs.routes {
		if !slices.Contains(tags, r.tag) {
			tags = append(tags, r.tag)
		}
	}
	if !slices.Contains(tags, rs.fallback) {
		tags = append(tags, rs.fallback)
	}
	return tags
}

func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func match(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}

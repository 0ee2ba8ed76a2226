package report

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/schema"
	"github.com/rotisserie/eris"
)

// Locator maps groups and conditions to report paths using a pattern such as
// "{model}/{stratum}/{condition}.csv" relative to Root.
type Locator struct {
	Root    string
	Pattern string
}

// Path returns the report path of one condition of a group.
func (l Locator) Path(key schema.GroupKey, condition string) string {
	rel := strings.NewReplacer(
		contract.ModelPlaceholder, key.Model,
		contract.StratumPlaceholder, key.Stratum,
		contract.ConditionPlaceholder, condition,
	).Replace(l.Pattern)
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}

// Discover lists the groups that have at least one report file under Root,
// sorted by stratum and then model.
func (l Locator) Discover() ([]schema.GroupKey, error) {
	glob := strings.NewReplacer(
		contract.ModelPlaceholder, "*",
		contract.StratumPlaceholder, "*",
		contract.ConditionPlaceholder, "*",
	).Replace(l.Pattern)
	matches, err := filepath.Glob(filepath.Join(l.Root, filepath.FromSlash(glob)))
	if err != nil {
		return nil, eris.Wrapf(err, "invalid pattern %s", l.Pattern)
	}

	re, err := l.matcher()
	if err != nil {
		return nil, err
	}

	seen := make(map[schema.GroupKey]struct{})
	var groups []schema.GroupKey
	for _, m := range matches {
		rel, err := filepath.Rel(l.Root, m)
		if err != nil {
			continue
		}
		sub := re.FindStringSubmatch(filepath.ToSlash(rel))
		if sub == nil {
			continue
		}
		key := schema.GroupKey{
			Model:   sub[re.SubexpIndex("model")],
			Stratum: sub[re.SubexpIndex("stratum")],
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		groups = append(groups, key)
	}

	slices.SortFunc(groups, func(a, b schema.GroupKey) int {
		if c := strings.Compare(a.Stratum, b.Stratum); c != 0 {
			return c
		}
		return strings.Compare(a.Model, b.Model)
	})
	return groups, nil
}

// matcher compiles the pattern into a regexp with one named group per placeholder.
func (l Locator) matcher() (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(filepath.ToSlash(l.Pattern))
	expr := strings.NewReplacer(
		regexp.QuoteMeta(contract.ModelPlaceholder), `(?P<model>[^/]+?)`,
		regexp.QuoteMeta(contract.StratumPlaceholder), `(?P<stratum>[^/]+?)`,
		regexp.QuoteMeta(contract.ConditionPlaceholder), `(?P<condition>[^/]+?)`,
	).Replace(quoted)
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, eris.Wrapf(err, "invalid pattern %s", l.Pattern)
	}
	return re, nil
}

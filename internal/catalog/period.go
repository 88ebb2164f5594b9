package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ScoringPeriod names the column a squad is optimized for. A single-period
// column has one component; derived columns sum several periods.
type ScoringPeriod struct {
	Label      string   `json:"label"`
	Components []string `json:"components"`
}

// Period optimizes for one period such as "gw1"
func Period(label string) ScoringPeriod {
	return ScoringPeriod{Label: label, Components: []string{label}}
}

// Sum optimizes for the total of several periods
func Sum(label string, periods ...string) ScoringPeriod {
	return ScoringPeriod{Label: label, Components: append([]string(nil), periods...)}
}

// FirstPeriods sums the first n periods of the catalog
func (c *Catalog) FirstPeriods(n int) (ScoringPeriod, error) {
	if n <= 0 || n > len(c.periods) {
		return ScoringPeriod{}, fmt.Errorf("%w: catalog has %d periods, requested first %d", ErrMissingPeriod, len(c.periods), n)
	}
	return Sum(fmt.Sprintf("first_%d", n), c.periods[:n]...), nil
}

// AllPeriods sums every period of the catalog
func (c *Catalog) AllPeriods() (ScoringPeriod, error) {
	if len(c.periods) == 0 {
		return ScoringPeriod{}, fmt.Errorf("%w: catalog has no periods", ErrMissingPeriod)
	}
	return Sum("all", c.periods...), nil
}

func (sp ScoringPeriod) validate() error {
	if len(sp.Components) == 0 {
		return fmt.Errorf("%w: scoring period %q has no components", ErrMissingPeriod, sp.Label)
	}
	return nil
}

func (sp ScoringPeriod) String() string {
	if sp.Label != "" {
		return sp.Label
	}
	if len(sp.Components) == 1 {
		return sp.Components[0]
	}
	return fmt.Sprintf("sum%v", sp.Components)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })
	return keys
}

// naturalLess orders "gw2" before "gw10"
func naturalLess(a, b string) bool {
	pa, na, oka := splitNumericSuffix(a)
	pb, nb, okb := splitNumericSuffix(b)
	if oka && okb && pa == pb && na != nb {
		return na < nb
	}
	return a < b
}

func splitNumericSuffix(s string) (string, int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0, false
	}
	return strings.ToLower(s[:i]), n, true
}

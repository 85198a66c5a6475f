package object

import (
	"sort"
	"strings"
	"time"

	"github.com/tmarchal/chantier/internal/period"
)

// Filter is the in-memory filter applied to a scoped job-site list. The
// ownership scope is applied in SQL before rows reach here.
type Filter struct {
	Query        string
	Status       *period.Status
	InactiveOnly bool
	PeriodFrom   *time.Time
	PeriodTo     *time.Time
	SortField    string
	SortDesc     bool
}

// Apply filters and sorts job sites. The input slice is not modified.
func Apply(objects []*Object, f Filter, asOf time.Time) []*Object {
	out := make([]*Object, 0, len(objects))
	for _, o := range objects {
		if matches(o, f, asOf) {
			out = append(out, o)
		}
	}
	sortObjects(out, f.SortField, f.SortDesc)
	return out
}

func matches(o *Object, f Filter, asOf time.Time) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(o.Name), q) &&
			!strings.Contains(strings.ToLower(o.Location), q) &&
			!strings.Contains(strings.ToLower(o.Description), q) {
			return false
		}
	}
	if f.InactiveOnly && !o.Inactive {
		return false
	}
	if f.PeriodFrom != nil {
		if o.End != nil && period.DateOnly(*o.End).Before(period.DateOnly(*f.PeriodFrom)) {
			return false
		}
	}
	if f.PeriodTo != nil {
		if o.Start != nil && period.DateOnly(*o.Start).After(period.DateOnly(*f.PeriodTo)) {
			return false
		}
	}
	if f.Status != nil {
		if period.Compute(o.Start, o.End, asOf) != *f.Status {
			return false
		}
	}
	return true
}

func sortObjects(objects []*Object, field string, desc bool) {
	sort.SliceStable(objects, func(i, j int) bool {
		a, b := objects[i], objects[j]
		an, bn := sortKeyMissing(a, field), sortKeyMissing(b, field)
		if an != bn {
			return an
		}
		if an && bn {
			return false
		}
		less := compareField(a, b, field)
		if less == 0 {
			return false
		}
		if desc {
			return less > 0
		}
		return less < 0
	})
}

func sortKeyMissing(o *Object, field string) bool {
	switch field {
	case "start":
		return o.Start == nil
	case "end":
		return o.End == nil
	}
	return false
}

func compareField(a, b *Object, field string) int {
	switch field {
	case "start":
		return a.Start.Compare(*b.Start)
	case "end":
		return a.End.Compare(*b.End)
	case "location":
		return strings.Compare(strings.ToLower(a.Location), strings.ToLower(b.Location))
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

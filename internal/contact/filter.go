package contact

import (
	"sort"
	"strings"
	"time"

	"github.com/tmarchal/chantier/internal/period"
)

// Filter is the in-memory filter applied to a scoped contact list. Scope
// itself (owner vs team) is applied in SQL before rows ever reach here.
type Filter struct {
	Query         string
	Role          string
	Object        string
	Status        *period.Status
	FavoriteOnly  bool
	BlacklistOnly bool
	PeriodFrom    *time.Time
	PeriodTo      *time.Time
	SortField     string
	SortDesc      bool
}

// Apply filters and sorts contacts. The input slice is not modified.
func Apply(contacts []*Contact, f Filter, asOf time.Time) []*Contact {
	out := make([]*Contact, 0, len(contacts))
	for _, c := range contacts {
		if matches(c, f, asOf) {
			out = append(out, c)
		}
	}
	sortContacts(out, f.SortField, f.SortDesc)
	return out
}

func matches(c *Contact, f Filter, asOf time.Time) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !matchesQuery(c, q) {
			return false
		}
	}
	if role := strings.ToLower(strings.TrimSpace(f.Role)); role != "" {
		if !anyContains(c.Roles, role) {
			return false
		}
	}
	if obj := strings.ToLower(strings.TrimSpace(f.Object)); obj != "" {
		if !anyContains(c.Objects, obj) {
			return false
		}
	}
	if f.FavoriteOnly && !c.IsFavorite {
		return false
	}
	if f.BlacklistOnly && !c.IsBlacklisted {
		return false
	}
	if f.PeriodFrom != nil {
		// Overlap on the lower bound: a contact whose engagement ended
		// before the window opens is filtered out.
		if c.WorkingTo != nil && period.DateOnly(*c.WorkingTo).Before(period.DateOnly(*f.PeriodFrom)) {
			return false
		}
	}
	if f.PeriodTo != nil {
		if c.WorkingFrom != nil && period.DateOnly(*c.WorkingFrom).After(period.DateOnly(*f.PeriodTo)) {
			return false
		}
	}
	if f.Status != nil {
		if period.Compute(c.WorkingFrom, c.WorkingTo, asOf) != *f.Status {
			return false
		}
	}
	return true
}

// matchesQuery ORs the free-text needle over every searchable field.
func matchesQuery(c *Contact, q string) bool {
	if strings.Contains(strings.ToLower(c.Name), q) {
		return true
	}
	if anyContains(c.Roles, q) || anyContains(c.Objects, q) {
		return true
	}
	if strings.Contains(strings.ToLower(c.Email), q) {
		return true
	}
	return strings.Contains(strings.ToLower(c.Phone), q)
}

func anyContains(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// sortContacts orders by the named field, entities missing the sort key
// first no matter the direction. Unknown fields fall back to name.
func sortContacts(contacts []*Contact, field string, desc bool) {
	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := contacts[i], contacts[j]
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

func sortKeyMissing(c *Contact, field string) bool {
	switch field {
	case "cost":
		return c.Cost == nil
	case "workingFrom":
		return c.WorkingFrom == nil
	case "workingTo":
		return c.WorkingTo == nil
	}
	return false
}

func compareField(a, b *Contact, field string) int {
	switch field {
	case "cost":
		switch {
		case *a.Cost < *b.Cost:
			return -1
		case *a.Cost > *b.Cost:
			return 1
		}
		return 0
	case "workingFrom":
		return a.WorkingFrom.Compare(*b.WorkingFrom)
	case "workingTo":
		return a.WorkingTo.Compare(*b.WorkingTo)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

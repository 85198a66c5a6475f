package contact

import (
	"testing"
	"time"

	"github.com/tmarchal/chantier/internal/period"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func floatPtr(f float64) *float64 { return &f }

func statusPtr(s period.Status) *period.Status { return &s }

var asOf = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func fixtures() []*Contact {
	return []*Contact{
		{
			ID: "c1", Name: "Алексей Мельников", Roles: []string{"электрик"},
			Objects: []string{"ЖК Северный"}, Email: "alex@mail.ru", Phone: "+79001112233",
			Cost: floatPtr(2500), WorkingFrom: datePtr(2026, time.January, 10),
			IsFavorite: true,
		},
		{
			ID: "c2", Name: "Борис Ткачёв", Roles: []string{"сантехник", "сварщик"},
			Objects: []string{"Офис на Ленина"}, Phone: "+79004445566",
			WorkingFrom: datePtr(2026, time.March, 1), WorkingTo: datePtr(2026, time.April, 30),
		},
		{
			ID: "c3", Name: "Вера Соколова", Roles: []string{"маляр"},
			Email: "vera@example.com", Cost: floatPtr(1800),
			IsBlacklisted: true,
		},
		{
			ID: "c4", Name: "ООО СтройТех", Roles: []string{"поставщик"},
			Objects: []string{"ЖК Северный", "Склад"},
			WorkingTo: datePtr(2026, time.December, 31),
		},
	}
}

func ids(contacts []*Contact) []string {
	out := make([]string, len(contacts))
	for i, c := range contacts {
		out[i] = c.ID
	}
	return out
}

func assertIDs(t *testing.T, got []*Contact, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("got %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("got %v, want %v", gotIDs, want)
		}
	}
}

func TestApply_FreeText(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty matches all", "", []string{"c1", "c2", "c3", "c4"}},
		{"name substring", "соколова", []string{"c3"}},
		{"name case-insensitive", "АЛЕКСЕЙ", []string{"c1"}},
		{"role", "сварщик", []string{"c2"}},
		{"object", "северный", []string{"c1", "c4"}},
		{"email", "example.com", []string{"c3"}},
		{"phone", "444", []string{"c2"}},
		{"no match", "плотник", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(fixtures(), Filter{Query: tt.query}, asOf)
			assertIDs(t, got, tt.want...)
		})
	}
}

func TestApply_FieldFiltersAreConjoined(t *testing.T) {
	// Free text and the role filter must both hold.
	got := Apply(fixtures(), Filter{Query: "северный", Role: "электрик"}, asOf)
	assertIDs(t, got, "c1")

	got = Apply(fixtures(), Filter{Query: "северный", Role: "маляр"}, asOf)
	assertIDs(t, got)

	got = Apply(fixtures(), Filter{Role: "с"}, asOf)
	assertIDs(t, got, "c2", "c4")

	got = Apply(fixtures(), Filter{Object: "склад"}, asOf)
	assertIDs(t, got, "c4")
}

func TestApply_BooleanFlags(t *testing.T) {
	got := Apply(fixtures(), Filter{FavoriteOnly: true}, asOf)
	assertIDs(t, got, "c1")

	got = Apply(fixtures(), Filter{BlacklistOnly: true}, asOf)
	assertIDs(t, got, "c3")

	got = Apply(fixtures(), Filter{FavoriteOnly: true, BlacklistOnly: true}, asOf)
	assertIDs(t, got)
}

func TestApply_Status(t *testing.T) {
	// As of 2026-06-15: c1 open-ended from January (active), c2 ended in
	// April (passive), c3 has no period (unknown), c4 runs until December
	// (active).
	tests := []struct {
		status period.Status
		want   []string
	}{
		{period.StatusActive, []string{"c1", "c4"}},
		{period.StatusPassive, []string{"c2"}},
		{period.StatusUnknown, []string{"c3"}},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			got := Apply(fixtures(), Filter{Status: statusPtr(tt.status)}, asOf)
			assertIDs(t, got, tt.want...)
		})
	}
}

func TestApply_PeriodOverlap(t *testing.T) {
	// periodFrom keeps contacts whose engagement had not ended before the
	// window opened; a missing end never disqualifies.
	got := Apply(fixtures(), Filter{PeriodFrom: datePtr(2026, time.May, 1)}, asOf)
	assertIDs(t, got, "c1", "c3", "c4")

	// Window opening on the exact end date still overlaps.
	got = Apply(fixtures(), Filter{PeriodFrom: datePtr(2026, time.April, 30)}, asOf)
	assertIDs(t, got, "c1", "c2", "c3", "c4")

	// periodTo keeps contacts who started before the window closed; a
	// missing start never disqualifies.
	got = Apply(fixtures(), Filter{PeriodTo: datePtr(2026, time.February, 1)}, asOf)
	assertIDs(t, got, "c1", "c3", "c4")

	got = Apply(fixtures(), Filter{
		PeriodFrom: datePtr(2026, time.March, 15),
		PeriodTo:   datePtr(2026, time.March, 20),
	}, asOf)
	assertIDs(t, got, "c1", "c2", "c3", "c4")
}

func TestApply_SortByName(t *testing.T) {
	got := Apply(fixtures(), Filter{SortField: "name"}, asOf)
	assertIDs(t, got, "c1", "c2", "c3", "c4")

	got = Apply(fixtures(), Filter{SortField: "name", SortDesc: true}, asOf)
	assertIDs(t, got, "c4", "c3", "c2", "c1")
}

func TestApply_SortNullsFirst(t *testing.T) {
	// c2 and c4 have no cost; they lead in both directions, keeping their
	// relative input order.
	got := Apply(fixtures(), Filter{SortField: "cost"}, asOf)
	assertIDs(t, got, "c2", "c4", "c3", "c1")

	got = Apply(fixtures(), Filter{SortField: "cost", SortDesc: true}, asOf)
	assertIDs(t, got, "c2", "c4", "c1", "c3")
}

func TestApply_SortByDate(t *testing.T) {
	// c3 and c4 have no workingFrom.
	got := Apply(fixtures(), Filter{SortField: "workingFrom"}, asOf)
	assertIDs(t, got, "c3", "c4", "c1", "c2")

	got = Apply(fixtures(), Filter{SortField: "workingFrom", SortDesc: true}, asOf)
	assertIDs(t, got, "c3", "c4", "c2", "c1")
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := fixtures()
	Apply(in, Filter{SortField: "cost", SortDesc: true, Query: "о"}, asOf)
	assertIDs(t, in, "c1", "c2", "c3", "c4")
}

package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func idPtr(v int64) *snowflake.ID {
	id := snowflake.ID(v)
	return &id
}

func rule(id int64, buildingID *snowflake.ID, from string, to *time.Time) QuotaGenerationRule {
	return QuotaGenerationRule{
		ID:            snowflake.ID(id),
		BuildingID:    buildingID,
		EffectiveFrom: date(from),
		EffectiveTo:   to,
		IsActive:      true,
	}
}

func TestResolveCandidatesBuildingBeatsCondominiumWide(t *testing.T) {
	candidates := []QuotaGenerationRule{
		rule(1, nil, "2026-01-01", nil),
		rule(2, idPtr(77), "2026-01-01", nil),
	}

	got := ResolveCandidates(candidates, idPtr(77), date("2026-03-15"))
	if got == nil || got.ID != 2 {
		t.Fatalf("expected building-scoped rule 2, got %+v", got)
	}
}

func TestResolveCandidatesFallsBackToCondominiumWide(t *testing.T) {
	candidates := []QuotaGenerationRule{
		rule(1, nil, "2026-01-01", nil),
		rule(2, idPtr(77), "2026-01-01", nil),
	}

	// Different building: the scoped rule does not apply.
	got := ResolveCandidates(candidates, idPtr(88), date("2026-03-15"))
	if got == nil || got.ID != 1 {
		t.Fatalf("expected condominium-wide rule 1, got %+v", got)
	}

	// No building context at all.
	got = ResolveCandidates(candidates, nil, date("2026-03-15"))
	if got == nil || got.ID != 1 {
		t.Fatalf("expected condominium-wide rule 1, got %+v", got)
	}
}

func TestResolveCandidatesRespectsEffectiveWindow(t *testing.T) {
	candidates := []QuotaGenerationRule{
		rule(1, nil, "2026-01-01", datePtr("2026-06-30")),
	}

	if got := ResolveCandidates(candidates, nil, date("2026-06-30")); got == nil {
		t.Fatal("inclusive end date should match")
	}
	if got := ResolveCandidates(candidates, nil, date("2026-07-01")); got != nil {
		t.Fatalf("expired rule should not match, got %+v", got)
	}
	if got := ResolveCandidates(candidates, nil, date("2025-12-31")); got != nil {
		t.Fatalf("future rule should not match, got %+v", got)
	}
}

func TestResolveCandidatesIgnoresInactive(t *testing.T) {
	inactive := rule(1, nil, "2026-01-01", nil)
	inactive.IsActive = false

	if got := ResolveCandidates([]QuotaGenerationRule{inactive}, nil, date("2026-03-01")); got != nil {
		t.Fatalf("inactive rule should not match, got %+v", got)
	}
}

func TestResolveCandidatesSameScopeLatestEffectiveFromWins(t *testing.T) {
	// Overlapping same-scope rules should not exist, but resolution must
	// stay deterministic if they do.
	candidates := []QuotaGenerationRule{
		rule(1, nil, "2026-01-01", nil),
		rule(2, nil, "2026-03-01", nil),
	}

	got := ResolveCandidates(candidates, nil, date("2026-04-01"))
	if got == nil || got.ID != 2 {
		t.Fatalf("expected latest effective_from to win, got %+v", got)
	}

	// Identical windows fall back to highest ID.
	candidates = []QuotaGenerationRule{
		rule(5, nil, "2026-01-01", nil),
		rule(9, nil, "2026-01-01", nil),
		rule(7, nil, "2026-01-01", nil),
	}
	got = ResolveCandidates(candidates, nil, date("2026-04-01"))
	if got == nil || got.ID != 9 {
		t.Fatalf("expected highest id to win, got %+v", got)
	}
}

func TestResolveCandidatesEmpty(t *testing.T) {
	if got := ResolveCandidates(nil, nil, date("2026-04-01")); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name   string
		fromA  string
		toA    *time.Time
		fromB  string
		toB    *time.Time
		expect bool
	}{
		{"disjoint", "2026-01-01", datePtr("2026-03-31"), "2026-04-01", datePtr("2026-06-30"), false},
		{"touching end dates", "2026-01-01", datePtr("2026-04-01"), "2026-04-01", datePtr("2026-06-30"), true},
		{"contained", "2026-01-01", datePtr("2026-12-31"), "2026-04-01", datePtr("2026-06-30"), true},
		{"both open ended", "2026-01-01", nil, "2027-01-01", nil, true},
		{"open end before closed start", "2026-06-01", nil, "2026-01-01", datePtr("2026-05-31"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(date(tc.fromA), tc.toA, date(tc.fromB), tc.toB)
			if got != tc.expect {
				t.Fatalf("Overlaps = %v, want %v", got, tc.expect)
			}
			// Symmetry.
			if rev := Overlaps(date(tc.fromB), tc.toB, date(tc.fromA), tc.toA); rev != got {
				t.Fatalf("Overlaps not symmetric for %s", tc.name)
			}
		})
	}
}

func TestCoversDateIsDateOnly(t *testing.T) {
	r := rule(1, nil, "2026-01-01", datePtr("2026-06-30"))
	lateEvening := time.Date(2026, 6, 30, 23, 59, 0, 0, time.UTC)
	if !r.CoversDate(lateEvening) {
		t.Fatal("time-of-day must not push a date outside the window")
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/platform/cache"
)

func TestCompetitionCreateValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		req   CreateCompetitionRequest
		field string
	}{
		{"end before start", CreateCompetitionRequest{Title: "Winter Olympiad", StartDate: "2024-01-31", EndDate: "2024-01-01"}, "end_date"},
		{"same day", CreateCompetitionRequest{Title: "Winter Olympiad", StartDate: "2024-01-31", EndDate: "2024-01-31"}, "end_date"},
		{"passing not below max", CreateCompetitionRequest{Title: "Winter Olympiad", StartDate: "2024-01-01", EndDate: "2024-01-31", MaxScore: floatPtr(60), PassingScore: floatPtr(60)}, "passing_score"},
		{"short title", CreateCompetitionRequest{Title: "Go", StartDate: "2024-01-01", EndDate: "2024-01-31"}, "title"},
		{"missing start", CreateCompetitionRequest{Title: "Winter Olympiad", EndDate: "2024-01-31"}, "start_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.competitions.Create(context.Background(), tt.req)
			var ve *common.ValidationError
			if !errors.As(err, &ve) || !ve.Has(tt.field) {
				t.Fatalf("expected %s validation error, got %v", tt.field, err)
			}
		})
	}
}

func TestCompetitionDefaultsAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ongoing := f.competition(t, "Winter Olympiad", "2024-01-01", "2024-01-31", 10)
	upcoming := f.competition(t, "Spring Cup", "2024-03-01", "2024-03-31", 10)
	ended := f.competition(t, "Autumn Cup", "2023-10-01", "2023-10-31", 10)
	lastDay := f.competition(t, "Short Sprint", "2024-01-10", "2024-01-15", 10)

	if ongoing.MaxScore != 100 || ongoing.PassingScore != 50 {
		t.Fatalf("unexpected defaults %+v", ongoing)
	}
	for comp, want := range map[*model.Competition]model.CompetitionStatus{
		ongoing: model.CompetitionOngoing, upcoming: model.CompetitionUpcoming,
		ended: model.CompetitionEnded, lastDay: model.CompetitionOngoing,
	} {
		got, err := f.competitions.Get(ctx, comp.ID)
		if err != nil {
			t.Fatalf("get %s: %v", comp.Title, err)
		}
		if got.Status != want {
			t.Errorf("%s: expected %s, got %s", comp.Title, want, got.Status)
		}
	}

	res, err := f.competitions.List(ctx, CompetitionListRequest{Status: model.CompetitionOngoing})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.TotalCount != 2 {
		t.Fatalf("expected 2 ongoing competitions, got %d", res.TotalCount)
	}
	for _, c := range res.Items {
		if c.Status != model.CompetitionOngoing {
			t.Fatalf("listed competition without status: %+v", c)
		}
	}
	if _, err := f.competitions.List(ctx, CompetitionListRequest{Status: "paused"}); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestCompetitionStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supervisor(t, "Layla Haddad", 5)
	comp := f.competition(t, "Winter Olympiad", "2024-01-01", "2024-01-31", 10)
	for name, value := range map[string]float64{"Amal": 60, "Bilal": 40, "Chadi": 80} {
		f.record(t, comp, f.contestant(t, name, &sup.ID), value)
	}

	st, err := f.competitions.Statistics(ctx, comp.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if st.TotalContestants != 3 || st.PassedCount != 2 || st.FailedCount != 1 {
		t.Fatalf("unexpected counts %+v", st)
	}
	if st.PassedCount+st.FailedCount != st.TotalContestants {
		t.Fatal("passed and failed must add up to the total")
	}
	if st.AverageScore != 60 || st.SuccessRate != 66.67 {
		t.Fatalf("unexpected averages %+v", st)
	}
	if !f.cache.has(cache.CompetitionKey(comp.ID)) {
		t.Fatal("statistics should be cached")
	}

	f.record(t, comp, f.contestant(t, "Dana", &sup.ID), 90)
	st, _ = f.competitions.Statistics(ctx, comp.ID)
	if st.TotalContestants != 4 {
		t.Fatalf("recording a score should refresh statistics, got %+v", st)
	}
}

func TestCompetitionDeleteRefusedWithScores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supervisor(t, "Layla Haddad", 5)
	comp := f.competition(t, "Winter Olympiad", "2024-01-01", "2024-01-31", 10)
	empty := f.competition(t, "Logic Cup", "2024-02-01", "2024-02-20", 10)
	f.record(t, comp, f.contestant(t, "Amal", &sup.ID), 60)

	if err := f.competitions.Delete(ctx, comp.ID); !errors.Is(err, common.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if err := f.competitions.Delete(ctx, empty.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestCompetitionUpdateScoresIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supervisor(t, "Layla Haddad", 5)
	comp := f.competition(t, "Winter Olympiad", "2024-01-01", "2024-01-31", 10)
	a := f.contestant(t, "Amal", &sup.ID)
	b := f.contestant(t, "Bilal", &sup.ID)
	scoreA := f.record(t, comp, a, 60)
	f.record(t, comp, b, 40)

	_, err := f.competitions.UpdateScores(ctx, comp.ID, []ScoreChange{
		{ContestantID: a.ID, ScoreValue: 75},
		{ContestantID: b.ID, ScoreValue: 150},
	})
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := f.scores.Get(ctx, scoreA.ID)
	if got.ScoreValue != 60 {
		t.Fatalf("first change must be rolled back, got %v", got.ScoreValue)
	}

	updated, err := f.competitions.UpdateScores(ctx, comp.ID, []ScoreChange{
		{ContestantID: a.ID, ScoreValue: 75},
		{ContestantID: b.ID, ScoreValue: 55, Notes: strPtr("re-marked")},
	})
	if err != nil {
		t.Fatalf("update scores: %v", err)
	}
	if len(updated) != 2 || !*updated[1].Passed || updated[1].Notes != "re-marked" {
		t.Fatalf("unexpected updated scores %+v", updated)
	}

	c := f.contestant(t, "Chadi", &sup.ID)
	if _, err := f.competitions.UpdateScores(ctx, comp.ID, []ScoreChange{{ContestantID: c.ID, ScoreValue: 50}}); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found for a contestant without a score, got %v", err)
	}
}

func TestCompetitionUpdateScoresRequiresOngoing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supervisor(t, "Layla Haddad", 5)
	comp := f.competition(t, "Winter Olympiad", "2024-01-01", "2024-01-31", 10)
	a := f.contestant(t, "Amal", &sup.ID)
	f.record(t, comp, a, 60)

	later := NewCompetitionService(f.store, nil, clockAt(today.AddDate(0, 1, 0)))
	if _, err := later.UpdateScores(ctx, comp.ID, []ScoreChange{{ContestantID: a.ID, ScoreValue: 70}}); !errors.Is(err, common.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

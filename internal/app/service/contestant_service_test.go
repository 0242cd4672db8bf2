package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
)

func TestContestantAgeBounds(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		birth string
		ok    bool
	}{
		{"2020-03-01", false}, // 4
		{"2019-12-31", true},  // 5
		{"1999-01-01", true},  // 25
		{"1998-12-31", false}, // 26
	}
	for _, tt := range tests {
		t.Run(tt.birth, func(t *testing.T) {
			_, err := f.contestants.Create(context.Background(), CreateContestantRequest{
				Name: "Contestant " + tt.birth, BirthDate: tt.birth, EducationLevel: "Secondary",
			})
			if tt.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tt.ok && !errors.Is(err, common.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestContestantRegistrationNumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	a := f.contestant(t, "Amal", nil)
	b := f.contestant(t, "Bilal", nil)
	if a.RegistrationNumber != "2024-0001" || b.RegistrationNumber != "2024-0002" {
		t.Fatalf("unexpected registration numbers %q %q", a.RegistrationNumber, b.RegistrationNumber)
	}
}

func TestContestantNamesAreNormalized(t *testing.T) {
	f := newFixture(t)
	c := f.contestant(t, "  Renée  ", nil)
	if c.Name != "Renée" {
		t.Fatalf("expected NFC trimmed name, got %q", c.Name)
	}
}

func TestContestantSupervisorCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	full := f.supervisor(t, "Layla Haddad", 1)
	f.contestant(t, "Amal", &full.ID)

	_, err := f.contestants.Create(ctx, CreateContestantRequest{
		Name: "Bilal", BirthDate: "2011-01-01", EducationLevel: "Primary", SupervisorID: &full.ID,
	})
	if !errors.Is(err, common.ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	other := f.supervisor(t, "Omar Nasser", 2)
	moving := f.contestant(t, "Chadi", &other.ID)
	if _, err := f.contestants.Update(ctx, moving.ID, UpdateContestantRequest{SupervisorID: &full.ID}); !errors.Is(err, common.ErrCapacity) {
		t.Fatalf("expected capacity error on reassignment, got %v", err)
	}
	got, _ := f.contestants.Get(ctx, moving.ID)
	if !got.SupervisedBy(other.ID) {
		t.Fatal("failed reassignment must leave the supervisor unchanged")
	}
}

func TestContestantConcurrentAssignmentsRespectCapacity(t *testing.T) {
	const limit, writers = 3, 8
	ctx := context.Background()

	// countSucceeded runs assign once per writer at the same time.
	countSucceeded := func(t *testing.T, assign func(i int) error) int {
		t.Helper()
		errs := make([]error, writers)
		var wg sync.WaitGroup
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = assign(i)
			}()
		}
		wg.Wait()

		ok := 0
		for i, err := range errs {
			switch {
			case err == nil:
				ok++
			case !errors.Is(err, common.ErrCapacity):
				t.Fatalf("writer %d: expected capacity error, got %v", i, err)
			}
		}
		return ok
	}

	t.Run("create", func(t *testing.T) {
		f := newFixture(t)
		sup := f.supervisor(t, "Layla Haddad", limit)
		created := countSucceeded(t, func(i int) error {
			_, err := f.contestants.Create(ctx, CreateContestantRequest{
				Name: fmt.Sprintf("Contestant %d", i+1), BirthDate: "2011-01-01", EducationLevel: "Primary", SupervisorID: &sup.ID,
			})
			return err
		})
		if created != limit {
			t.Fatalf("expected %d contestants created, got %d", limit, created)
		}
		if n, _ := f.store.Contestants().CountBySupervisor(ctx, sup.ID); n != limit {
			t.Fatalf("expected %d assigned contestants, got %d", limit, n)
		}
	})

	t.Run("update", func(t *testing.T) {
		f := newFixture(t)
		sup := f.supervisor(t, "Layla Haddad", limit)
		unassigned := make([]*model.Contestant, writers)
		for i := range unassigned {
			unassigned[i] = f.contestant(t, fmt.Sprintf("Contestant %d", i+1), nil)
		}
		moved := countSucceeded(t, func(i int) error {
			_, err := f.contestants.Update(ctx, unassigned[i].ID, UpdateContestantRequest{SupervisorID: &sup.ID})
			return err
		})
		if moved != limit {
			t.Fatalf("expected %d contestants reassigned, got %d", limit, moved)
		}
		if n, _ := f.store.Contestants().CountBySupervisor(ctx, sup.ID); n != limit {
			t.Fatalf("expected %d assigned contestants, got %d", limit, n)
		}
	})
}

func TestContestantUpdateKeepsSupervisorWithoutRecheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supervisor(t, "Layla Haddad", 1)
	c := f.contestant(t, "Amal", &sup.ID)

	updated, err := f.contestants.Update(ctx, c.ID, UpdateContestantRequest{
		Name:         strPtr("Amal Khoury"),
		SupervisorID: &sup.ID,
	})
	if err != nil {
		t.Fatalf("update at full capacity with the same supervisor: %v", err)
	}
	if updated.Name != "Amal Khoury" || updated.RegistrationNumber != c.RegistrationNumber {
		t.Fatalf("unexpected contestant %+v", updated)
	}
}

func TestContestantUnknownSupervisor(t *testing.T) {
	f := newFixture(t)
	_, err := f.contestants.Create(context.Background(), CreateContestantRequest{
		Name: "Amal", BirthDate: "2011-01-01", EducationLevel: "Primary", SupervisorID: uintPtr(999),
	})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestContestantDeleteRemovesScores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supervisor(t, "Layla Haddad", 3)
	comp := f.competition(t, "Winter Olympiad", "2024-01-01", "2024-01-31", 10)
	c := f.contestant(t, "Amal", &sup.ID)
	f.record(t, comp, c, 70)

	if err := f.contestants.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, _ := f.store.Scores().CountByCompetition(ctx, comp.ID)
	if n != 0 {
		t.Fatalf("expected scores to be removed, %d left", n)
	}
	if _, err := f.contestants.Get(ctx, c.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestContestantAverageAndLatestScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sup := f.supervisor(t, "Layla Haddad", 3)
	c := f.contestant(t, "Amal", &sup.ID)

	avg, err := f.contestants.Average(ctx, c.ID)
	if err != nil || avg != 0 {
		t.Fatalf("expected 0 average with no scores, got %v %v", avg, err)
	}
	if _, err := f.contestants.LatestScore(ctx, c.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found without scores, got %v", err)
	}

	first := f.competition(t, "Winter Olympiad", "2024-01-01", "2024-01-31", 10)
	second := f.competition(t, "Logic Cup", "2024-01-10", "2024-01-20", 10)
	f.record(t, first, c, 45)
	f.record(t, second, c, 80.25)

	avg, _ = f.contestants.Average(ctx, c.ID)
	if avg != 62.63 {
		t.Fatalf("expected 62.63, got %v", avg)
	}
	latest, err := f.contestants.LatestScore(ctx, c.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.CompetitionID != second.ID || latest.Passed == nil || !*latest.Passed {
		t.Fatalf("unexpected latest score %+v", latest)
	}
}

type fakeIndexer struct {
	indexed map[uint]model.Contestant
	results []uint
	err     error
}

func (i *fakeIndexer) IndexContestant(_ context.Context, c *model.Contestant) error {
	if i.indexed == nil {
		i.indexed = map[uint]model.Contestant{}
	}
	i.indexed[c.ID] = *c
	return nil
}

func (i *fakeIndexer) DeleteContestant(_ context.Context, id uint) error {
	delete(i.indexed, id)
	return nil
}

func (i *fakeIndexer) SearchContestants(context.Context, string, *uint, int) ([]uint, error) {
	return i.results, i.err
}

func TestContestantSearchUsesIndexThenFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idx := &fakeIndexer{}
	svc := NewContestantService(f.store, nil, idx, clockAt(today))

	amal, err := svc.Create(ctx, CreateContestantRequest{Name: "Amal Khoury", BirthDate: "2010-01-01", EducationLevel: "Secondary"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	amina, _ := svc.Create(ctx, CreateContestantRequest{Name: "Amina Saleh", BirthDate: "2010-01-01", EducationLevel: "Secondary"})
	if len(idx.indexed) != 2 {
		t.Fatalf("expected both contestants indexed, got %d", len(idx.indexed))
	}

	// Relevance order from the index is kept; unknown ids are dropped.
	idx.results = []uint{amina.ID, 999, amal.ID}
	found, err := svc.Search(ctx, "ami", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 || found[0].ID != amina.ID || found[1].ID != amal.ID {
		t.Fatalf("unexpected index results %+v", found)
	}

	idx.err = errIndexDown
	found, err = svc.Search(ctx, "khoury", nil)
	if err != nil {
		t.Fatalf("fallback search: %v", err)
	}
	if len(found) != 1 || found[0].ID != amal.ID {
		t.Fatalf("unexpected fallback results %+v", found)
	}

	if err := svc.Delete(ctx, amal.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := idx.indexed[amal.ID]; ok {
		t.Fatal("deleted contestant should leave the index")
	}
}

func TestContestantSearchByRegistrationNumber(t *testing.T) {
	f := newFixture(t)
	f.contestant(t, "Amal", nil)
	b := f.contestant(t, "Bilal", nil)

	found, err := f.contestants.Search(context.Background(), b.RegistrationNumber, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != b.ID {
		t.Fatalf("unexpected results %+v", found)
	}
}

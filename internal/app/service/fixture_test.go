package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"contest_registry/internal/domain/model"
	"contest_registry/internal/testkit/memstore"
)

// Mid-January 2024; the January competition used across tests is ongoing.
var today = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func clockAt(t time.Time) Clock {
	return func() time.Time { return t }
}

type fixture struct {
	store        *memstore.Store
	cache        *fakeCache
	supervisors  *SupervisorService
	contestants  *ContestantService
	competitions *CompetitionService
	scores       *ScoreService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	c := newFakeCache()
	clock := clockAt(today)
	return &fixture{
		store:        store,
		cache:        c,
		supervisors:  NewSupervisorService(store, c, clock),
		contestants:  NewContestantService(store, c, nil, clock),
		competitions: NewCompetitionService(store, c, clock),
		scores:       NewScoreService(store, c, clock),
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }
func uintPtr(v uint) *uint        { return &v }

func (f *fixture) supervisor(t *testing.T, name string, maxContestants int) *model.Supervisor {
	t.Helper()
	sup, err := f.supervisors.Create(context.Background(), CreateSupervisorRequest{
		Name:           name,
		HireDate:       "2020-09-01",
		Department:     "Mathematics",
		Qualification:  "MSc",
		MaxContestants: intPtr(maxContestants),
	})
	if err != nil {
		t.Fatalf("create supervisor %s: %v", name, err)
	}
	return sup
}

func (f *fixture) contestant(t *testing.T, name string, supervisorID *uint) *model.Contestant {
	t.Helper()
	c, err := f.contestants.Create(context.Background(), CreateContestantRequest{
		Name:           name,
		BirthDate:      "2010-05-20",
		EducationLevel: "Secondary",
		Address:        "12 Olive Street",
		SupervisorID:   supervisorID,
	})
	if err != nil {
		t.Fatalf("create contestant %s: %v", name, err)
	}
	return c
}

func (f *fixture) competition(t *testing.T, title, start, end string, maxContestants int) *model.Competition {
	t.Helper()
	c, err := f.competitions.Create(context.Background(), CreateCompetitionRequest{
		Title:          title,
		StartDate:      start,
		EndDate:        end,
		MaxContestants: intPtr(maxContestants),
	})
	if err != nil {
		t.Fatalf("create competition %s: %v", title, err)
	}
	return c
}

func (f *fixture) record(t *testing.T, comp *model.Competition, c *model.Contestant, value float64) *model.Score {
	t.Helper()
	sc, err := f.scores.Record(context.Background(), RecordScoreRequest{
		CompetitionID: comp.ID,
		ContestantID:  c.ID,
		SupervisorID:  *c.SupervisorID,
		ScoreValue:    value,
	})
	if err != nil {
		t.Fatalf("record %v for %s: %v", value, c.Name, err)
	}
	return sc
}

// fakeCache is an in-memory StatsCache that counts hits.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

var errIndexDown = errors.New("index unavailable")

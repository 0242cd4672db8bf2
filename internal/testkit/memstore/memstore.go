// Package memstore is an in-memory repository.Store for service and handler tests.
// Transactions are serialised and roll back by restoring a snapshot.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/repository"

	"gorm.io/datatypes"
)

type state struct {
	nextID       uint
	supervisors  map[uint]model.Supervisor
	contestants  map[uint]model.Contestant
	competitions map[uint]model.Competition
	scores       map[uint]model.Score
	users        map[uint]model.User
	sequences    map[string]int64
	jobs         map[string]model.ImportJob
}

func newState() *state {
	return &state{
		supervisors:  map[uint]model.Supervisor{},
		contestants:  map[uint]model.Contestant{},
		competitions: map[uint]model.Competition{},
		scores:       map[uint]model.Score{},
		users:        map[uint]model.User{},
		sequences:    map[string]int64{},
		jobs:         map[string]model.ImportJob{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.supervisors {
		c.supervisors[k] = v
	}
	for k, v := range s.contestants {
		c.contestants[k] = v
	}
	for k, v := range s.competitions {
		c.competitions[k] = v
	}
	for k, v := range s.scores {
		c.scores[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	return c
}

type Store struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	data  *state
	clock time.Time
}

func New() *Store {
	return &Store{data: newState(), clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// tick returns a strictly increasing timestamp so ordering by created_at is stable.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) id() uint {
	s.data.nextID++
	return s.data.nextID
}

func (s *Store) Supervisors() repository.SupervisorRepository   { return supervisors{s} }
func (s *Store) Contestants() repository.ContestantRepository   { return contestants{s} }
func (s *Store) Competitions() repository.CompetitionRepository { return competitions{s} }
func (s *Store) Scores() repository.ScoreRepository             { return scores{s} }
func (s *Store) Users() repository.UserRepository               { return users{s} }
func (s *Store) Sequences() repository.SequenceRepository       { return sequences{s} }
func (s *Store) ImportJobs() repository.ImportJobRepository     { return jobs{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, common.ErrNotFound)
}

func conflict(op string) error {
	return fmt.Errorf("%s: %w", op, common.ErrConflict)
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func page[T any](items []T, p repository.Page) []T {
	if p.Offset > 0 {
		if p.Offset >= len(items) {
			return []T{}
		}
		items = items[p.Offset:]
	}
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

// ---- supervisors

type supervisors struct{ s *Store }

func (r supervisors) Create(_ context.Context, v *model.Supervisor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.data.supervisors {
		if e.EmployeeID == v.EmployeeID {
			return conflict("create supervisor")
		}
	}
	v.ID = r.s.id()
	v.CreatedAt = r.s.tick()
	v.UpdatedAt = v.CreatedAt
	r.s.data.supervisors[v.ID] = *v
	return nil
}

func (r supervisors) Update(_ context.Context, v *model.Supervisor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.supervisors[v.ID]; !ok {
		return notFound("update supervisor")
	}
	for _, e := range r.s.data.supervisors {
		if e.ID != v.ID && e.EmployeeID == v.EmployeeID {
			return conflict("update supervisor")
		}
	}
	v.UpdatedAt = r.s.tick()
	r.s.data.supervisors[v.ID] = *v
	return nil
}

func (r supervisors) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.supervisors[id]; !ok {
		return notFound("delete supervisor")
	}
	delete(r.s.data.supervisors, id)
	return nil
}

func (r supervisors) FindByID(_ context.Context, id uint) (*model.Supervisor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.supervisors[id]
	if !ok {
		return nil, notFound("find supervisor")
	}
	return &v, nil
}

func (r supervisors) FindByIDForUpdate(ctx context.Context, id uint) (*model.Supervisor, error) {
	return r.FindByID(ctx, id)
}

func (r supervisors) FindByName(_ context.Context, name string) (*model.Supervisor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.Supervisor
	for _, v := range r.s.data.supervisors {
		if v.Name == name && (found == nil || v.ID < found.ID) {
			found = &v
		}
	}
	if found == nil {
		return nil, notFound("find supervisor by name")
	}
	return found, nil
}

func (r supervisors) FindByIDs(_ context.Context, ids []uint) ([]model.Supervisor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Supervisor{}
	for _, id := range ids {
		if v, ok := r.s.data.supervisors[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r supervisors) List(_ context.Context, f repository.SupervisorFilter) ([]model.Supervisor, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Supervisor{}
	for _, v := range r.s.data.supervisors {
		if f.Search != "" && !contains(v.Name, f.Search) && !contains(v.EmployeeID, f.Search) {
			continue
		}
		if f.Department != "" && v.Department != f.Department {
			continue
		}
		if f.Active != nil && v.IsActive != *f.Active {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, f.Page), int64(len(out)), nil
}

// ---- contestants

type contestants struct{ s *Store }

func (r contestants) Create(_ context.Context, v *model.Contestant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.data.contestants {
		if e.RegistrationNumber == v.RegistrationNumber {
			return conflict("create contestant")
		}
	}
	v.ID = r.s.id()
	v.CreatedAt = r.s.tick()
	v.UpdatedAt = v.CreatedAt
	r.s.data.contestants[v.ID] = *v
	return nil
}

func (r contestants) Update(_ context.Context, v *model.Contestant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.contestants[v.ID]; !ok {
		return notFound("update contestant")
	}
	for _, e := range r.s.data.contestants {
		if e.ID != v.ID && e.RegistrationNumber == v.RegistrationNumber {
			return conflict("update contestant")
		}
	}
	v.UpdatedAt = r.s.tick()
	r.s.data.contestants[v.ID] = *v
	return nil
}

func (r contestants) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.contestants[id]; !ok {
		return notFound("delete contestant")
	}
	delete(r.s.data.contestants, id)
	return nil
}

func (r contestants) FindByID(_ context.Context, id uint) (*model.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.contestants[id]
	if !ok {
		return nil, notFound("find contestant")
	}
	return &v, nil
}

func (r contestants) FindByName(_ context.Context, name string) (*model.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.Contestant
	for _, v := range r.s.data.contestants {
		if v.Name == name && (found == nil || v.ID < found.ID) {
			found = &v
		}
	}
	if found == nil {
		return nil, notFound("find contestant by name")
	}
	return found, nil
}

func (r contestants) FindByIDs(_ context.Context, ids []uint) ([]model.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Contestant{}
	for _, id := range ids {
		if v, ok := r.s.data.contestants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r contestants) CountBySupervisor(_ context.Context, supervisorID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, v := range r.s.data.contestants {
		if v.SupervisedBy(supervisorID) {
			n++
		}
	}
	return n, nil
}

func (r contestants) matching(term string, supervisorID *uint) []model.Contestant {
	out := []model.Contestant{}
	for _, v := range r.s.data.contestants {
		if term != "" && !contains(v.Name, term) && !contains(v.RegistrationNumber, term) {
			continue
		}
		if supervisorID != nil && !v.SupervisedBy(*supervisorID) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r contestants) List(_ context.Context, f repository.ContestantFilter) ([]model.Contestant, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Contestant{}
	for _, v := range r.matching(f.Search, f.SupervisorID) {
		if f.EducationLevel != "" && v.EducationLevel != f.EducationLevel {
			continue
		}
		if f.Active != nil && v.IsActive != *f.Active {
			continue
		}
		out = append(out, v)
	}
	return page(out, f.Page), int64(len(out)), nil
}

func (r contestants) Search(_ context.Context, term string, supervisorID *uint, limit int) ([]model.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.matching(term, supervisorID), repository.Page{Limit: limit}), nil
}

// ---- competitions

type competitions struct{ s *Store }

func (r competitions) Create(_ context.Context, v *model.Competition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v.ID = r.s.id()
	v.CreatedAt = r.s.tick()
	v.UpdatedAt = v.CreatedAt
	stored := *v
	stored.Status = ""
	r.s.data.competitions[v.ID] = stored
	return nil
}

func (r competitions) Update(_ context.Context, v *model.Competition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.competitions[v.ID]; !ok {
		return notFound("update competition")
	}
	v.UpdatedAt = r.s.tick()
	stored := *v
	stored.Status = ""
	r.s.data.competitions[v.ID] = stored
	return nil
}

func (r competitions) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.competitions[id]; !ok {
		return notFound("delete competition")
	}
	delete(r.s.data.competitions, id)
	return nil
}

func (r competitions) FindByID(_ context.Context, id uint) (*model.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.competitions[id]
	if !ok {
		return nil, notFound("find competition")
	}
	return &v, nil
}

func (r competitions) FindByIDForUpdate(ctx context.Context, id uint) (*model.Competition, error) {
	return r.FindByID(ctx, id)
}

func (r competitions) FindByTitle(_ context.Context, title string) (*model.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.Competition
	for _, v := range r.s.data.competitions {
		if v.Title == title && (found == nil || v.ID < found.ID) {
			found = &v
		}
	}
	if found == nil {
		return nil, notFound("find competition by title")
	}
	return found, nil
}

func (r competitions) FindByIDs(_ context.Context, ids []uint) ([]model.Competition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Competition{}
	for _, id := range ids {
		if v, ok := r.s.data.competitions[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r competitions) List(_ context.Context, f repository.CompetitionFilter) ([]model.Competition, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Competition{}
	for _, v := range r.s.data.competitions {
		if f.Search != "" && !contains(v.Title, f.Search) {
			continue
		}
		if f.Status != "" && v.StatusAt(f.Today) != f.Status {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartDate.After(out[j].StartDate)
	})
	return page(out, f.Page), int64(len(out)), nil
}

// ---- scores

type scores struct{ s *Store }

func (r scores) pairTaken(v *model.Score) bool {
	for _, e := range r.s.data.scores {
		if e.ID != v.ID && e.ContestantID == v.ContestantID && e.CompetitionID == v.CompetitionID {
			return true
		}
	}
	return false
}

func (r scores) Create(_ context.Context, v *model.Score) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.pairTaken(v) {
		return conflict("create score")
	}
	v.ID = r.s.id()
	v.CreatedAt = r.s.tick()
	v.UpdatedAt = v.CreatedAt
	stored := *v
	stored.Passed = nil
	r.s.data.scores[v.ID] = stored
	return nil
}

func (r scores) Update(_ context.Context, v *model.Score) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.scores[v.ID]; !ok {
		return notFound("update score")
	}
	if r.pairTaken(v) {
		return conflict("update score")
	}
	v.UpdatedAt = r.s.tick()
	stored := *v
	stored.Passed = nil
	r.s.data.scores[v.ID] = stored
	return nil
}

func (r scores) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.scores[id]; !ok {
		return notFound("delete score")
	}
	delete(r.s.data.scores, id)
	return nil
}

func (r scores) DeleteByContestant(_ context.Context, contestantID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, v := range r.s.data.scores {
		if v.ContestantID == contestantID {
			delete(r.s.data.scores, id)
		}
	}
	return nil
}

func (r scores) FindByID(_ context.Context, id uint) (*model.Score, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.scores[id]
	if !ok {
		return nil, notFound("find score")
	}
	return &v, nil
}

func (r scores) FindByPair(_ context.Context, contestantID, competitionID uint) (*model.Score, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.data.scores {
		if v.ContestantID == contestantID && v.CompetitionID == competitionID {
			return &v, nil
		}
	}
	return nil, notFound("find score")
}

func (r scores) LatestByContestant(_ context.Context, contestantID uint) (*model.Score, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.Score
	for _, v := range r.s.data.scores {
		if v.ContestantID == contestantID && (found == nil || v.CreatedAt.After(found.CreatedAt)) {
			found = &v
		}
	}
	if found == nil {
		return nil, notFound("find latest score")
	}
	return found, nil
}

func (r scores) where(pred func(model.Score) bool) []model.Score {
	out := []model.Score{}
	for _, v := range r.s.data.scores {
		if pred(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func values(in []model.Score) []float64 {
	out := make([]float64, 0, len(in))
	for _, v := range in {
		out = append(out, v.ScoreValue)
	}
	return out
}

func (r scores) CountByCompetition(_ context.Context, competitionID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.where(func(v model.Score) bool { return v.CompetitionID == competitionID }))), nil
}

func (r scores) CountHigher(_ context.Context, competitionID uint, value float64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.where(func(v model.Score) bool {
		return v.CompetitionID == competitionID && v.ScoreValue > value
	}))), nil
}

func (r scores) ValuesByCompetition(_ context.Context, competitionID uint) ([]float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return values(r.where(func(v model.Score) bool { return v.CompetitionID == competitionID })), nil
}

func (r scores) ValuesByContestant(_ context.Context, contestantID uint) ([]float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return values(r.where(func(v model.Score) bool { return v.ContestantID == contestantID })), nil
}

func (r scores) ValuesBySupervisor(_ context.Context, supervisorID uint) ([]float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return values(r.where(func(v model.Score) bool {
		c, ok := r.s.data.contestants[v.ContestantID]
		return ok && c.SupervisedBy(supervisorID)
	})), nil
}

func (r scores) List(_ context.Context, f repository.ScoreFilter) ([]model.Score, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.where(func(v model.Score) bool {
		return (f.CompetitionID == nil || v.CompetitionID == *f.CompetitionID) &&
			(f.ContestantID == nil || v.ContestantID == *f.ContestantID) &&
			(f.SupervisorID == nil || v.SupervisorID == *f.SupervisorID)
	})
	return page(out, f.Page), int64(len(out)), nil
}

// ---- users

type users struct{ s *Store }

func (r users) Create(_ context.Context, v *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.data.users {
		if e.Username == v.Username {
			return conflict("create user")
		}
	}
	v.ID = r.s.id()
	v.CreatedAt = r.s.tick()
	v.UpdatedAt = v.CreatedAt
	r.s.data.users[v.ID] = *v
	return nil
}

func (r users) Update(_ context.Context, v *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[v.ID]; !ok {
		return notFound("update user")
	}
	v.UpdatedAt = r.s.tick()
	r.s.data.users[v.ID] = *v
	return nil
}

func (r users) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.data.users {
		if v.Username == username {
			return &v, nil
		}
	}
	return nil, notFound("find user by username")
}

func (r users) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.users[id]
	if !ok {
		return nil, notFound("find user")
	}
	return &v, nil
}

func (r users) List(_ context.Context, p repository.Page) ([]model.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.User{}
	for _, v := range r.s.data.users {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return page(out, p), int64(len(out)), nil
}

func (r users) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.data.users)), nil
}

// ---- sequences

type sequences struct{ s *Store }

func (r sequences) Next(_ context.Context, name string, year int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := fmt.Sprintf("%s/%d", name, year)
	r.s.data.sequences[key]++
	return r.s.data.sequences[key], nil
}

// ---- import jobs

type jobs struct{ s *Store }

func (r jobs) CreateJob(_ context.Context, job *model.ImportJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.jobs[job.ID]; ok {
		return conflict("create import job")
	}
	job.CreatedAt = r.s.tick()
	job.UpdatedAt = job.CreatedAt
	r.s.data.jobs[job.ID] = *job
	return nil
}

func (r jobs) GetJobByID(_ context.Context, id string) (*model.ImportJob, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.jobs[id]
	if !ok {
		return nil, notFound("find import job")
	}
	return &v, nil
}

func (r jobs) UpdateJobStatus(_ context.Context, id, status string, lastError *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.jobs[id]
	if !ok {
		return notFound("update import job")
	}
	v.Status = status
	v.LastError = lastError
	v.UpdatedAt = r.s.tick()
	if status == model.JobStatusFailed {
		finished := v.UpdatedAt
		v.FinishedAt = &finished
	}
	r.s.data.jobs[id] = v
	return nil
}

func (r jobs) FinishJob(_ context.Context, id string, success, failed int, errors datatypes.JSON) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.data.jobs[id]
	if !ok {
		return notFound("finish import job")
	}
	v.Status = model.JobStatusCompleted
	v.SuccessCount = success
	v.ErrorCount = failed
	v.Errors = errors
	v.Payload = nil
	v.UpdatedAt = r.s.tick()
	finished := v.UpdatedAt
	v.FinishedAt = &finished
	r.s.data.jobs[id] = v
	return nil
}

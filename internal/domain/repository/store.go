package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"

	"gorm.io/gorm"
)

// Store groups the repositories so a service can run several of them inside one transaction.
type Store interface {
	Supervisors() SupervisorRepository
	Contestants() ContestantRepository
	Competitions() CompetitionRepository
	Scores() ScoreRepository
	Users() UserRepository
	Sequences() SequenceRepository
	ImportJobs() ImportJobRepository

	// WithinTx runs fn against a Store bound to one transaction. A non-nil error rolls it back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

const DefaultPageSize = 10

// Page limits a listing. Limit 0 returns every row.
type Page struct {
	Limit  int
	Offset int
}

type SupervisorFilter struct {
	Search     string
	Department string
	Active     *bool
	Page
}

type ContestantFilter struct {
	Search         string
	SupervisorID   *uint
	EducationLevel string
	Active         *bool
	Page
}

type CompetitionFilter struct {
	Search string
	Status model.CompetitionStatus
	// Today is the calendar date Status is evaluated against.
	Today time.Time
	Page
}

type ScoreFilter struct {
	CompetitionID *uint
	ContestantID  *uint
	SupervisorID  *uint
	Page
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Supervisors() SupervisorRepository   { return &gormSupervisorRepository{db: s.db} }
func (s *gormStore) Contestants() ContestantRepository   { return &gormContestantRepository{db: s.db} }
func (s *gormStore) Competitions() CompetitionRepository { return &gormCompetitionRepository{db: s.db} }
func (s *gormStore) Scores() ScoreRepository             { return &gormScoreRepository{db: s.db} }
func (s *gormStore) Users() UserRepository               { return &gormUserRepository{db: s.db} }
func (s *gormStore) Sequences() SequenceRepository       { return &gormSequenceRepository{db: s.db} }
func (s *gormStore) ImportJobs() ImportJobRepository     { return &gormImportJobRepository{db: s.db} }

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// translateError maps driver errors onto the common sentinels.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	if common.IsUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, common.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func paginate(q *gorm.DB, p Page) *gorm.DB {
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}

func likePattern(term string) string {
	return "%" + term + "%"
}

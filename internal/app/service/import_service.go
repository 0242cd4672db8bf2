package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/repository"
	"contest_registry/internal/platform/metrics"
	"contest_registry/internal/platform/spreadsheet"
)

// BatchResult reports a bulk import. Errors are "row N: message" with N the
// spreadsheet row number, the header being row 1.
type BatchResult struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors"`
}

func (r *BatchResult) fail(row int, err error) {
	r.ErrorCount++
	r.Errors = append(r.Errors, fmt.Sprintf("row %d: %s", row, rowMessage(err)))
}

// rowMessage drops the wrapping context so the row error reads like the rule that failed.
func rowMessage(err error) string {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		parts := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		return strings.Join(parts, "; ")
	}
	switch {
	case errors.Is(err, common.ErrCapacity):
		return "capacity exceeded: " + err.Error()
	case errors.Is(err, common.ErrConflict):
		return "duplicate: " + err.Error()
	}
	return err.Error()
}

// ImportService turns spreadsheet rows into entities through the regular services,
// so every row passes the same validation and capacity rules as a single create.
type ImportService struct {
	store       repository.Store
	supervisors *SupervisorService
	contestants *ContestantService
	scores      *ScoreService
}

func NewImportService(store repository.Store, supervisors *SupervisorService, contestants *ContestantService, scores *ScoreService) *ImportService {
	return &ImportService{store: store, supervisors: supervisors, contestants: contestants, scores: scores}
}

// Import dispatches rows, header included, to the importer for kind.
func (s *ImportService) Import(ctx context.Context, kind model.ImportKind, rows [][]string) (*BatchResult, error) {
	switch kind {
	case model.ImportContestants:
		return s.ImportContestants(ctx, rows), nil
	case model.ImportSupervisors:
		return s.ImportSupervisors(ctx, rows), nil
	case model.ImportScores:
		return s.ImportScores(ctx, rows), nil
	}
	return nil, fmt.Errorf("unknown import kind %q: %w", kind, common.ErrBadRequest)
}

// eachRow calls fn for every non-blank data row with its spreadsheet row number.
func (s *ImportService) eachRow(kind model.ImportKind, rows [][]string, fn func(rowNum int, row []string) error) *BatchResult {
	result := &BatchResult{Errors: []string{}}
	for i, row := range rows {
		if i == 0 || spreadsheet.IsBlank(row) {
			continue
		}
		if err := fn(i+1, row); err != nil {
			result.fail(i+1, err)
			metrics.ImportRows.WithLabelValues(string(kind), "error").Inc()
			continue
		}
		result.SuccessCount++
		metrics.ImportRows.WithLabelValues(string(kind), "success").Inc()
	}
	log.Printf("INFO: %s import finished: %d imported, %d failed", kind, result.SuccessCount, result.ErrorCount)
	return result
}

// ImportContestants reads Name, Birth Date, Education Level, Address, Supervisor, Registration Number.
func (s *ImportService) ImportContestants(ctx context.Context, rows [][]string) *BatchResult {
	return s.eachRow(model.ImportContestants, rows, func(_ int, row []string) error {
		req := CreateContestantRequest{
			Name:               spreadsheet.Cell(row, 0),
			BirthDate:          spreadsheet.Cell(row, 1),
			EducationLevel:     spreadsheet.Cell(row, 2),
			Address:            spreadsheet.Cell(row, 3),
			RegistrationNumber: spreadsheet.Cell(row, 5),
		}
		if name := spreadsheet.Cell(row, 4); name != "" {
			sup, err := s.store.Supervisors().FindByName(ctx, model.NormalizeText(name))
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("supervisor %q not found", name)
				}
				return err
			}
			req.SupervisorID = &sup.ID
		}
		_, err := s.contestants.Create(ctx, req)
		return err
	})
}

// ImportSupervisors reads Name, Hire Date, Department, Qualification, Max Contestants, Employee ID.
// A blank or unreadable Max Contestants falls back to the default capacity.
func (s *ImportService) ImportSupervisors(ctx context.Context, rows [][]string) *BatchResult {
	return s.eachRow(model.ImportSupervisors, rows, func(_ int, row []string) error {
		maxContestants := model.DefaultSupervisorCapacity
		if raw := spreadsheet.Cell(row, 4); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				maxContestants = n
			}
		}
		_, err := s.supervisors.Create(ctx, CreateSupervisorRequest{
			Name:           spreadsheet.Cell(row, 0),
			HireDate:       spreadsheet.Cell(row, 1),
			Department:     spreadsheet.Cell(row, 2),
			Qualification:  spreadsheet.Cell(row, 3),
			MaxContestants: &maxContestants,
			EmployeeID:     spreadsheet.Cell(row, 5),
		})
		return err
	})
}

// ImportScores reads Competition, Contestant, Supervisor, Score and Notes (seventh column),
// resolving each name to its entity.
func (s *ImportService) ImportScores(ctx context.Context, rows [][]string) *BatchResult {
	return s.eachRow(model.ImportScores, rows, func(_ int, row []string) error {
		title := spreadsheet.Cell(row, 0)
		comp, err := s.store.Competitions().FindByTitle(ctx, model.NormalizeText(title))
		if err != nil {
			return lookupError("competition", title, err)
		}
		name := spreadsheet.Cell(row, 1)
		contestant, err := s.store.Contestants().FindByName(ctx, model.NormalizeText(name))
		if err != nil {
			return lookupError("contestant", name, err)
		}
		supName := spreadsheet.Cell(row, 2)
		sup, err := s.store.Supervisors().FindByName(ctx, model.NormalizeText(supName))
		if err != nil {
			return lookupError("supervisor", supName, err)
		}
		value, err := strconv.ParseFloat(spreadsheet.Cell(row, 3), 64)
		if err != nil {
			return common.NewValidationError("score_value", "must be a number")
		}
		_, err = s.scores.Record(ctx, RecordScoreRequest{
			CompetitionID: comp.ID,
			ContestantID:  contestant.ID,
			SupervisorID:  sup.ID,
			ScoreValue:    value,
			Notes:         spreadsheet.Cell(row, 6),
		})
		return err
	})
}

func lookupError(entity, name string, err error) error {
	if name == "" {
		return fmt.Errorf("%s is required", entity)
	}
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("%s %q not found", entity, name)
	}
	return err
}

package service

import (
	"context"
	"fmt"
	"io"
	"sort"

	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/repository"
	"contest_registry/internal/domain/stats"
	"contest_registry/internal/platform/spreadsheet"

	"github.com/gosimple/slug"
)

var (
	ContestantColumns = []string{"Name", "Birth Date", "Education Level", "Address", "Supervisor", "Registration Number", "Registered At"}
	SupervisorColumns = []string{"Name", "Hire Date", "Department", "Qualification", "Max Contestants", "Employee ID", "Contestants", "Average Score", "Status"}
	ScoreColumns      = []string{"Competition", "Contestant", "Supervisor", "Score", "Result", "Entry Date", "Notes"}
	ResultsColumns    = []string{"Contestant", "Supervisor", "Score", "Result", "Rank", "Entry Date"}
)

// ExportService writes registry data as .xlsx workbooks with the column layouts the importer reads back.
type ExportService struct {
	store repository.Store
}

func NewExportService(store repository.Store) *ExportService {
	return &ExportService{store: store}
}

func (s *ExportService) supervisorNames(ctx context.Context, ids []uint) (map[uint]string, error) {
	names := map[uint]string{}
	if len(ids) == 0 {
		return names, nil
	}
	sups, err := s.store.Supervisors().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load supervisors: %w", err)
	}
	for _, sup := range sups {
		names[sup.ID] = sup.Name
	}
	return names, nil
}

func (s *ExportService) ExportContestants(ctx context.Context, w io.Writer, supervisorID *uint) error {
	contestants, _, err := s.store.Contestants().List(ctx, repository.ContestantFilter{SupervisorID: supervisorID})
	if err != nil {
		return fmt.Errorf("failed to load contestants: %w", err)
	}
	ids := []uint{}
	for _, c := range contestants {
		if c.SupervisorID != nil {
			ids = append(ids, *c.SupervisorID)
		}
	}
	names, err := s.supervisorNames(ctx, ids)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(contestants))
	for _, c := range contestants {
		supervisor := ""
		if c.SupervisorID != nil {
			supervisor = names[*c.SupervisorID]
		}
		rows = append(rows, []any{
			c.Name, model.FormatDate(c.BirthDate), c.EducationLevel, c.Address,
			supervisor, c.RegistrationNumber, model.FormatDate(c.CreatedAt),
		})
	}
	return spreadsheet.WriteXLSX(w, spreadsheet.Sheet{Name: "Contestants", Header: ContestantColumns, Rows: rows})
}

func (s *ExportService) ExportSupervisors(ctx context.Context, w io.Writer) error {
	sups, _, err := s.store.Supervisors().List(ctx, repository.SupervisorFilter{})
	if err != nil {
		return fmt.Errorf("failed to load supervisors: %w", err)
	}

	rows := make([][]any, 0, len(sups))
	for _, sup := range sups {
		count, err := s.store.Contestants().CountBySupervisor(ctx, sup.ID)
		if err != nil {
			return err
		}
		values, err := s.store.Scores().ValuesBySupervisor(ctx, sup.ID)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			sup.Name, model.FormatDate(sup.HireDate), sup.Department, sup.Qualification,
			sup.MaxContestants, sup.EmployeeID, count, stats.Mean(values), sup.StatusLabel(),
		})
	}
	return spreadsheet.WriteXLSX(w, spreadsheet.Sheet{Name: "Supervisors", Header: SupervisorColumns, Rows: rows})
}

// scoreContext resolves the names and competitions a score listing refers to.
type scoreContext struct {
	competitions map[uint]*model.Competition
	contestants  map[uint]string
	supervisors  map[uint]string
}

func (s *ExportService) loadScoreContext(ctx context.Context, scores []model.Score) (*scoreContext, error) {
	var compIDs, contestantIDs, supervisorIDs []uint
	for _, sc := range scores {
		compIDs = append(compIDs, sc.CompetitionID)
		contestantIDs = append(contestantIDs, sc.ContestantID)
		supervisorIDs = append(supervisorIDs, sc.SupervisorID)
	}
	out := &scoreContext{competitions: map[uint]*model.Competition{}, contestants: map[uint]string{}}

	if len(compIDs) > 0 {
		comps, err := s.store.Competitions().FindByIDs(ctx, compIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load competitions: %w", err)
		}
		for i := range comps {
			out.competitions[comps[i].ID] = &comps[i]
		}
		contestants, err := s.store.Contestants().FindByIDs(ctx, contestantIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load contestants: %w", err)
		}
		for _, c := range contestants {
			out.contestants[c.ID] = c.Name
		}
	}
	names, err := s.supervisorNames(ctx, supervisorIDs)
	if err != nil {
		return nil, err
	}
	out.supervisors = names
	return out, nil
}

func (sc *scoreContext) result(score model.Score) string {
	comp, ok := sc.competitions[score.CompetitionID]
	if !ok {
		return ""
	}
	return model.ResultLabel(comp.IsPassing(score.ScoreValue))
}

func (s *ExportService) ExportScores(ctx context.Context, w io.Writer, competitionID *uint) error {
	scores, _, err := s.store.Scores().List(ctx, repository.ScoreFilter{CompetitionID: competitionID})
	if err != nil {
		return fmt.Errorf("failed to load scores: %w", err)
	}
	names, err := s.loadScoreContext(ctx, scores)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(scores))
	for _, sc := range scores {
		title := ""
		if comp, ok := names.competitions[sc.CompetitionID]; ok {
			title = comp.Title
		}
		rows = append(rows, []any{
			title, names.contestants[sc.ContestantID], names.supervisors[sc.SupervisorID],
			sc.ScoreValue, names.result(sc), model.FormatDate(sc.EntryDate), sc.Notes,
		})
	}
	return spreadsheet.WriteXLSX(w, spreadsheet.Sheet{Name: "Scores", Header: ScoreColumns, Rows: rows})
}

// ExportCompetitionResults writes one competition's scores from best to worst and
// returns the file name, "<slug of title>-results.xlsx".
func (s *ExportService) ExportCompetitionResults(ctx context.Context, w io.Writer, competitionID uint) (string, error) {
	comp, err := s.store.Competitions().FindByID(ctx, competitionID)
	if err != nil {
		return "", err
	}
	scores, _, err := s.store.Scores().List(ctx, repository.ScoreFilter{CompetitionID: &competitionID})
	if err != nil {
		return "", fmt.Errorf("failed to load scores: %w", err)
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].ScoreValue > scores[j].ScoreValue })

	names, err := s.loadScoreContext(ctx, scores)
	if err != nil {
		return "", err
	}
	values := make([]float64, 0, len(scores))
	for _, sc := range scores {
		values = append(values, sc.ScoreValue)
	}

	rows := make([][]any, 0, len(scores))
	for _, sc := range scores {
		rows = append(rows, []any{
			names.contestants[sc.ContestantID], names.supervisors[sc.SupervisorID], sc.ScoreValue,
			model.ResultLabel(comp.IsPassing(sc.ScoreValue)), stats.Rank(sc.ScoreValue, values),
			model.FormatDate(sc.EntryDate),
		})
	}
	if err := spreadsheet.WriteXLSX(w, spreadsheet.Sheet{Name: "Results", Header: ResultsColumns, Rows: rows}); err != nil {
		return "", err
	}
	return slug.Make(comp.Title) + "-results.xlsx", nil
}

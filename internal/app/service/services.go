package service

import "contest_registry/internal/domain/repository"

// Services is the full service graph both binaries run on.
type Services struct {
	Auth         *AuthService
	Supervisors  *SupervisorService
	Contestants  *ContestantService
	Competitions *CompetitionService
	Scores       *ScoreService
	Import       *ImportService
	ImportJobs   *ImportJobService
	Export       *ExportService
}

// Deps are the optional collaborators. Nil cache, indexer or clock fall back to
// no caching, database search and the system clock; a nil queue disables queued imports.
type Deps struct {
	Cache   StatsCache
	Indexer ContestantIndexer
	Queue   JobQueue
	Clock   Clock
}

func NewServices(store repository.Store, deps Deps) *Services {
	s := &Services{
		Auth:         NewAuthService(store.Users(), deps.Clock),
		Supervisors:  NewSupervisorService(store, deps.Cache, deps.Clock),
		Contestants:  NewContestantService(store, deps.Cache, deps.Indexer, deps.Clock),
		Competitions: NewCompetitionService(store, deps.Cache, deps.Clock),
		Scores:       NewScoreService(store, deps.Cache, deps.Clock),
		Export:       NewExportService(store),
	}
	s.Import = NewImportService(store, s.Supervisors, s.Contestants, s.Scores)
	s.ImportJobs = NewImportJobService(store.ImportJobs(), s.Import, deps.Queue)
	return s
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/cache"
	"github.com/odunayomike/report-card-generator-sub003/internal/config"
	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/lock"
	"github.com/odunayomike/report-card-generator-sub003/internal/reportcard"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
	"github.com/odunayomike/report-card-generator-sub003/internal/textimport"
	"github.com/odunayomike/report-card-generator-sub003/internal/validator"
)

// Dependencies are the collaborators the services are wired with. Only Repo,
// Validator and Logger are required.
type Dependencies struct {
	Repo       repositories.Repository
	Roster     repositories.RosterSource
	Locker     lock.Locker
	Snapshots  *cache.SnapshotCache
	Publisher  events.EventPublisher
	Dispatcher *reportcard.Dispatcher
	Validator  *validator.Validator
	Settings   config.ExamSettings
	Logger     *slog.Logger

	SweepInterval time.Duration
	Now           func() time.Time
}

type serviceManager struct {
	deps Dependencies

	question     QuestionService
	importExport ImportExportService
	exam         ExamService
	attempt      AttemptService
	studentExam  StudentExamService
	sweeper      *Sweeper
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	var dispatcher ResultDispatcher
	if deps.Dispatcher != nil {
		dispatcher = deps.Dispatcher
	}

	question := NewQuestionService(deps.Repo, deps.Logger, deps.Validator)
	attempt := NewAttemptService(AttemptServiceConfig{
		Repo:       deps.Repo,
		Locker:     deps.Locker,
		Snapshots:  deps.Snapshots,
		Dispatcher: dispatcher,
		Publisher:  deps.Publisher,
		GradeBands: deps.Settings.GradeBands,
		Logger:     deps.Logger,
		Now:        deps.Now,
	})

	policy := textimport.DefaultPolicy()
	if len(deps.Settings.ImportRequiredHeaders) > 0 {
		policy.RequiredHeaders = deps.Settings.ImportRequiredHeaders
	}
	if deps.Settings.DefaultDifficulty != "" {
		policy.DefaultDifficulty = deps.Settings.DefaultDifficulty
	}

	return &serviceManager{
		deps:         deps,
		question:     question,
		importExport: NewImportExportService(deps.Repo, question, policy, deps.Logger, deps.Validator),
		exam: NewExamService(ExamServiceConfig{
			Repo:      deps.Repo,
			Roster:    deps.Roster,
			Snapshots: deps.Snapshots,
			Publisher: deps.Publisher,
			Validator: deps.Validator,
			Logger:    deps.Logger,
			Now:       deps.Now,
		}),
		attempt:     attempt,
		studentExam: NewStudentExamService(deps.Repo, attempt, deps.Logger, deps.Now),
		sweeper:     NewSweeper(attempt, deps.SweepInterval, deps.Logger, deps.Now),
	}
}

func (m *serviceManager) Question() QuestionService {
	return m.question
}

func (m *serviceManager) ImportExport() ImportExportService {
	return m.importExport
}

func (m *serviceManager) Exam() ExamService {
	return m.exam
}

func (m *serviceManager) Attempt() AttemptService {
	return m.attempt
}

func (m *serviceManager) StudentExam() StudentExamService {
	return m.studentExam
}

func (m *serviceManager) Start(ctx context.Context) {
	m.sweeper.Start(ctx)
}

// Stop halts the sweeper, drains queued report-card deliveries and closes the
// event publisher, in that order.
func (m *serviceManager) Stop(ctx context.Context) error {
	m.sweeper.Stop()

	var errs []error
	if m.deps.Dispatcher != nil {
		if err := m.deps.Dispatcher.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.deps.Publisher != nil {
		if err := m.deps.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *serviceManager) Ping(ctx context.Context) error {
	return m.deps.Repo.Ping(ctx)
}

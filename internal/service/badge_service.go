package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
	"github.com/noah-isme/event-registration-api/pkg/export"
	"github.com/noah-isme/event-registration-api/pkg/jobs"
	"github.com/noah-isme/event-registration-api/pkg/storage"
)

const badgeJobType = "badge_sheet"

var errBadgeJobCancelled = errors.New("badge job cancelled")

type badgeDispatcher interface {
	Enqueue(job jobs.Job) error
}

type badgeRenderer interface {
	Render(badges []export.Badge, before func(i int) error) ([]byte, error)
}

type badgeJobState struct {
	job       models.BadgeJob
	cancelled atomic.Bool
}

// BadgeService queues badge sheet renders and tracks them in memory.
type BadgeService struct {
	registrations registrationSource
	roles         roleDirectory
	storage       fileStorage
	signer        *storage.SignedURLSigner
	renderer      badgeRenderer
	queue         badgeDispatcher
	audit         auditLogger
	metrics       *MetricsService
	logger        *zap.Logger
	apiPrefix     string
	now           func() time.Time

	mu   sync.RWMutex
	jobs map[string]*badgeJobState
}

// NewBadgeService constructs the badge service. Attach a dispatcher with UseQueue before calling Start.
func NewBadgeService(registrations registrationSource, roles roleDirectory, store fileStorage, signer *storage.SignedURLSigner, audit auditLogger, metrics *MetricsService, apiPrefix string, logger *zap.Logger) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeService{
		registrations: registrations,
		roles:         roles,
		storage:       store,
		signer:        signer,
		renderer:      export.NewBadgeSheet(),
		audit:         audit,
		metrics:       metrics,
		logger:        logger,
		apiPrefix:     apiPrefix,
		now:           func() time.Time { return time.Now().UTC() },
		jobs:          make(map[string]*badgeJobState),
	}
}

// UseQueue wires the dispatcher that runs Handle.
func (s *BadgeService) UseQueue(queue badgeDispatcher) {
	s.queue = queue
}

// Start records a queued job and hands it to the worker pool.
func (s *BadgeService) Start(ctx context.Context, actor Actor, req models.BadgeJobRequest) (*models.BadgeJob, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "badge generation is disabled")
	}
	filter, err := badgeFilter(req)
	if err != nil {
		return nil, err
	}

	state := &badgeJobState{job: models.BadgeJob{
		ID:        uuid.NewString(),
		Status:    models.BadgeJobQueued,
		CreatedBy: actor.UserID,
		Filter:    filter,
		CreatedAt: s.now(),
	}}
	s.mu.Lock()
	s.jobs[state.job.ID] = state
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: state.job.ID, Type: badgeJobType}); err != nil {
		s.finish(state.job.ID, models.BadgeJobFailed, func(job *models.BadgeJob) { job.Error = "failed to enqueue job" })
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue badge job")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionExport, "badge_job", state.job.ID, nil, filter)
	job := s.snapshot(state)
	return &job, nil
}

// Get returns a job snapshot. Users other than super admins only see their own jobs.
func (s *BadgeService) Get(ctx context.Context, actor Actor, id string) (*models.BadgeJob, error) {
	state, err := s.lookup(actor, id)
	if err != nil {
		return nil, err
	}
	job := s.snapshot(state)
	return &job, nil
}

// Cancel flags a job; the worker stops before its next badge.
func (s *BadgeService) Cancel(ctx context.Context, actor Actor, id string) (*models.BadgeJob, error) {
	state, err := s.lookup(actor, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if state.job.Done() {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("badge job already %s", state.job.Status))
	}
	state.cancelled.Store(true)
	if state.job.Status == models.BadgeJobQueued {
		s.markDone(state, models.BadgeJobCancelled, nil)
	}
	job := state.job
	s.mu.Unlock()
	return &job, nil
}

// Handle renders the badge sheet of a queued job.
func (s *BadgeService) Handle(ctx context.Context, qjob jobs.Job) error {
	s.mu.Lock()
	state, ok := s.jobs[qjob.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("badge job %s unknown: %w", qjob.ID, jobs.ErrPermanent)
	}
	if state.job.Done() {
		s.mu.Unlock()
		return nil
	}
	state.job.Status = models.BadgeJobProcessing
	state.job.Rendered = 0
	filter := state.job.Filter
	s.mu.Unlock()

	regs, scoped, err := s.registrations.Registrations(ctx, filter)
	if err != nil {
		return err
	}
	badges := BuildBadges(regs, s.roleNames(ctx, scoped.EventConfigID))
	if len(badges) == 0 {
		s.finish(qjob.ID, models.BadgeJobFailed, func(job *models.BadgeJob) { job.Error = "no registrants match the filter" })
		return nil
	}
	s.mu.Lock()
	state.job.Total = len(badges)
	s.mu.Unlock()

	payload, err := s.renderer.Render(badges, func(i int) error {
		if state.cancelled.Load() {
			return errBadgeJobCancelled
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		state.job.Rendered = i
		s.mu.Unlock()
		return nil
	})
	if errors.Is(err, errBadgeJobCancelled) {
		s.finish(qjob.ID, models.BadgeJobCancelled, nil)
		s.logger.Info("badge job cancelled", zap.String("job_id", qjob.ID))
		return nil
	}
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("badges/badges_%s_%s.pdf", s.now().Format("20060102_150405"), qjob.ID[:8])
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return err
	}
	token, _, err := s.signer.Generate(qjob.ID, relPath)
	if err != nil {
		return fmt.Errorf("sign badge url: %w", jobs.ErrPermanent)
	}
	s.finish(qjob.ID, models.BadgeJobFinished, func(job *models.BadgeJob) {
		job.Rendered = len(badges)
		job.ResultPath = relPath
		job.DownloadURL = downloadURL(s.apiPrefix, "badges", token)
		job.Error = ""
	})
	s.logger.Info("badge job finished", zap.String("job_id", qjob.ID), zap.Int("badges", len(badges)))
	return nil
}

// HandleFailure marks a job failed once the queue gives up on it.
func (s *BadgeService) HandleFailure(qjob jobs.Job, err error) {
	s.finish(qjob.ID, models.BadgeJobFailed, func(job *models.BadgeJob) { job.Error = err.Error() })
}

// Open validates a badge download token and opens the sheet.
func (s *BadgeService) Open(token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")
	}
	s.mu.RLock()
	state, ok := s.jobs[jobID]
	ready := ok && state.job.Status == models.BadgeJobFinished && state.job.ResultPath == relPath
	s.mu.RUnlock()
	if !ready {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "badge sheet not available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "badge sheet no longer exists")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open badge sheet")
	}
	return file, relPath, nil
}

// Prune forgets finished jobs older than ttl.
func (s *BadgeService) Prune(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)
	removed := 0
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, state := range s.jobs {
		if state.job.FinishedAt != nil && state.job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (s *BadgeService) lookup(actor Actor, id string) (*badgeJobState, error) {
	s.mu.RLock()
	state, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "badge job not found")
	}
	if actor.Role != models.RoleSuperAdmin && state.job.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "badge job belongs to another user")
	}
	return state, nil
}

func (s *BadgeService) snapshot(state *badgeJobState) models.BadgeJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return state.job
}

func (s *BadgeService) finish(id string, status models.BadgeJobStatus, mutate func(job *models.BadgeJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.jobs[id]
	if !ok || state.job.Done() {
		return
	}
	s.markDone(state, status, mutate)
}

// markDone requires s.mu.
func (s *BadgeService) markDone(state *badgeJobState, status models.BadgeJobStatus, mutate func(job *models.BadgeJob)) {
	now := s.now()
	state.job.Status = status
	state.job.FinishedAt = &now
	if mutate != nil {
		mutate(&state.job)
	}
	s.metrics.RecordBadgeJob(status)
}

func (s *BadgeService) roleNames(ctx context.Context, eventID string) map[string]models.EventRole {
	lookup := make(map[string]models.EventRole)
	if s.roles == nil {
		return lookup
	}
	roles, err := s.roles.ListRoles(ctx, eventID)
	if err != nil {
		s.logger.Warn("role lookup failed, badges print without team names", zap.String("event_id", eventID), zap.Error(err))
		return lookup
	}
	for _, role := range roles {
		lookup[role.ID] = role
	}
	return lookup
}

// badgeFilter narrows requested statuses to those allowed to attend.
func badgeFilter(req models.BadgeJobRequest) (models.AnalyticsFilter, error) {
	allowed := models.CheckInStatuses()
	filter := models.AnalyticsFilter{Search: strings.TrimSpace(req.Search), Statuses: allowed}
	if len(req.Statuses) == 0 {
		return filter, nil
	}
	filter.Statuses = nil
	for _, status := range req.Statuses {
		if !status.Info().CheckInAllowed {
			return filter, validationError("status cannot receive badges", []appErrors.FieldDetail{
				{Field: "statuses", Message: fmt.Sprintf("%s registrations cannot receive badges", status)},
			})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	return filter, nil
}

// BuildBadges turns registrants into printable badges ordered by role then name.
func BuildBadges(regs []models.Registration, roles map[string]models.EventRole) []export.Badge {
	badges := make([]export.Badge, 0)
	for _, reg := range regs {
		for _, r := range reg.Registrants {
			badge := export.Badge{
				FullName:    r.FullName,
				SaintName:   deref(r.SaintName),
				Role:        "Tham dự viên",
				Diocese:     r.Diocese,
				InvoiceCode: reg.InvoiceCode,
			}
			if known, ok := roles[r.EventRole]; ok {
				badge.Role, badge.Team = known.Name, known.TeamName
			} else if r.Role() != models.ParticipantRole {
				badge.Role = r.Role()
			}
			badges = append(badges, badge)
		}
	}
	sort.SliceStable(badges, func(i, j int) bool {
		if badges[i].Team != badges[j].Team {
			return badges[i].Team < badges[j].Team
		}
		return badges[i].FullName < badges[j].FullName
	})
	return badges
}

package escalation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"fundportal/internal/model"
	"fundportal/pkg/metrics"
	"fundportal/pkg/rbac"
)

// Service drives overdue milestones through the escalation chain: detect,
// advance level by level, freeze funds when the chain is exhausted, and
// roll state back when a human resolves the issue.
type Service struct {
	store         Store
	notifier      Notifier
	logger        *zap.Logger
	waitThreshold time.Duration
	itemTimeout   time.Duration
	now           func() time.Time
}

func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		store:         store,
		notifier:      notifier,
		logger:        logger,
		waitThreshold: 7 * 24 * time.Hour,
		itemTimeout:   15 * time.Second,
		now:           time.Now,
	}
}

// WithWaitThreshold sets how long an escalation stays open before it is
// advanced to the next level.
func (s *Service) WithWaitThreshold(d time.Duration) *Service {
	if d > 0 {
		s.waitThreshold = d
	}
	return s
}

// WithItemTimeout bounds the time spent per sweep item.
func (s *Service) WithItemTimeout(d time.Duration) *Service {
	if d > 0 {
		s.itemTimeout = d
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Sweep runs one detection and advancement pass. Item failures are logged
// and skipped; the first error is returned so the caller can record that
// the sweep was incomplete.
func (s *Service) Sweep(ctx context.Context) error {
	detectErr := s.SweepOverdueMilestones(ctx)
	advanceErr := s.SweepStaleEscalations(ctx)

	if detectErr != nil {
		return detectErr
	}
	return advanceErr
}

// SweepOverdueMilestones finds milestones whose expected date has passed
// without completion, marks them overdue, and opens a level-1 escalation
// addressed to the project's executing agency unless one is already open.
func (s *Service) SweepOverdueMilestones(ctx context.Context) error {
	now := s.now()

	items, err := s.store.FindOverdueMilestones(ctx, now)
	if err != nil {
		s.logger.Error("Failed to scan for overdue milestones", zap.Error(err))
		return fmt.Errorf("scan overdue milestones: %w", err)
	}

	if len(items) == 0 {
		s.logger.Debug("No overdue milestones found")
		return nil
	}

	for _, item := range items {
		itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
		if err := s.escalateOverdueMilestone(itemCtx, item); err != nil {
			s.logger.Error("Failed to escalate overdue milestone",
				zap.Int("milestone_id", item.Milestone.ID),
				zap.Int("project_id", item.Project.ID),
				zap.Error(err),
			)
		}
		cancel()
	}

	s.logger.Info("Overdue milestone check completed",
		zap.Int("overdue_count", len(items)),
	)
	return nil
}

func (s *Service) escalateOverdueMilestone(ctx context.Context, item model.OverdueMilestone) error {
	if err := s.store.MarkMilestoneOverdue(ctx, item.Milestone.ID); err != nil {
		return fmt.Errorf("mark milestone overdue: %w", err)
	}

	milestoneID := item.Milestone.ID
	esc := &model.Escalation{
		ProjectID:   item.Project.ID,
		MilestoneID: &milestoneID,
		Level:       model.MinEscalationLevel,
		Type:        model.EscalationTypeMilestoneOverdue,
		Description: fmt.Sprintf("Milestone %q is overdue. Expected date: %s",
			item.Milestone.Title, item.Milestone.ExpectedDate.Format("2006-01-02")),
		Status:      model.EscalationOpen,
		EscalatedTo: item.Project.ExecutingAgencyID,
	}

	created, err := s.store.InsertOpenEscalation(ctx, esc)
	if err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}
	if !created {
		// Another sweep or a manual creation got there first.
		s.logger.Debug("Open escalation already exists for milestone",
			zap.Int("milestone_id", item.Milestone.ID),
		)
		return nil
	}

	metrics.IncEscalationCreated(strconv.Itoa(esc.Level))
	s.logger.Info("Escalation created",
		zap.Int("escalation_id", esc.ID),
		zap.Int("level", esc.Level),
		zap.Int("project_id", esc.ProjectID),
	)

	s.notifyUser(ctx, esc.EscalatedTo, Notice{
		Kind:          model.NotificationEscalation,
		Title:         fmt.Sprintf("Escalation Alert - Level %d", esc.Level),
		Message:       esc.Description,
		ReferenceID:   esc.ID,
		ReferenceType: "escalation",
	})
	return nil
}

// SweepStaleEscalations advances every open escalation older than the wait
// threshold: the current record is closed and a successor opens one level
// up, addressed to the next responsible party. A level-4 escalation aging
// past the threshold triggers maximum-escalation handling instead.
func (s *Service) SweepStaleEscalations(ctx context.Context) error {
	cutoff := s.now().Add(-s.waitThreshold)

	cases, err := s.store.FindStaleOpenEscalations(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to scan for stale escalations", zap.Error(err))
		return fmt.Errorf("scan stale escalations: %w", err)
	}

	if len(cases) == 0 {
		s.logger.Debug("No stale escalations found")
		return nil
	}

	for _, c := range cases {
		itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
		if err := s.advance(itemCtx, c); err != nil {
			s.logger.Error("Failed to advance escalation",
				zap.Int("escalation_id", c.Escalation.ID),
				zap.Int("level", c.Escalation.Level),
				zap.Error(err),
			)
		}
		cancel()
	}

	s.logger.Info("Escalation advancement completed",
		zap.Int("stale_count", len(cases)),
	)
	return nil
}

func (s *Service) advance(ctx context.Context, c model.EscalationCase) error {
	current := c.Escalation
	nextLevel := current.Level + 1

	if nextLevel > model.MaxEscalationLevel {
		return s.handleMaxEscalation(ctx, c)
	}

	recipient, err := s.findRecipient(ctx, nextLevel, c.Project)
	if err != nil {
		return fmt.Errorf("resolve recipient for level %d: %w", nextLevel, err)
	}
	if recipient == nil {
		// Configuration gap: nobody is registered for this level and scope.
		// Close the current escalation anyway; the chain stalls here until
		// someone configures the missing role.
		if err := s.store.CloseEscalation(ctx, current.ID); err != nil {
			return fmt.Errorf("close escalation: %w", err)
		}
		metrics.IncEscalationAdvanced("no_recipient")
		s.logger.Warn("No recipient configured for next escalation level",
			zap.Int("escalation_id", current.ID),
			zap.Int("next_level", nextLevel),
			zap.String("state", c.Project.State),
			zap.String("district", c.Project.District),
		)
		return nil
	}

	next := &model.Escalation{
		ProjectID:   current.ProjectID,
		MilestoneID: current.MilestoneID,
		Level:       nextLevel,
		Type:        current.Type,
		Description: fmt.Sprintf("%s (Escalated from Level %d)", current.Description, current.Level),
		Status:      model.EscalationOpen,
		EscalatedTo: recipient.ID,
	}

	if err := s.store.AdvanceEscalation(ctx, current.ID, next); err != nil {
		if errors.Is(err, ErrNotOpen) {
			// Advanced or resolved since we read it. Nothing to do.
			return nil
		}
		return fmt.Errorf("advance escalation: %w", err)
	}

	metrics.IncEscalationAdvanced("advanced")
	metrics.IncEscalationCreated(strconv.Itoa(nextLevel))
	s.logger.Info("Escalated to next level",
		zap.Int("closed_escalation_id", current.ID),
		zap.Int("escalation_id", next.ID),
		zap.Int("level", nextLevel),
		zap.Int("project_id", current.ProjectID),
	)

	s.notify(ctx, *recipient, Notice{
		Kind:          model.NotificationEscalation,
		Title:         fmt.Sprintf("Escalation Alert - Level %d", nextLevel),
		Message:       next.Description,
		ReferenceID:   next.ID,
		ReferenceType: "escalation",
	})
	return nil
}

// handleMaxEscalation runs when an escalation has exhausted level 4:
// freeze the project's earliest pending tranche if there is one, notify
// every central administrator, and flag the escalation for admin action.
func (s *Service) handleMaxEscalation(ctx context.Context, c model.EscalationCase) error {
	current := c.Escalation

	frozen := false
	tranche, err := s.store.FindEarliestPendingTranche(ctx, current.ProjectID)
	if err != nil {
		return fmt.Errorf("find pending tranche: %w", err)
	}
	if tranche != nil {
		note := "Frozen due to unresolved escalation at maximum level"
		if err := s.store.FreezeTranche(ctx, tranche.ID, note); err != nil {
			return fmt.Errorf("freeze tranche: %w", err)
		}
		frozen = true
		metrics.TranchesFrozen.Inc()
		s.logger.Info("Tranche frozen",
			zap.Int("tranche_id", tranche.ID),
			zap.Int("tranche_number", tranche.TrancheNumber),
			zap.Int("project_id", current.ProjectID),
		)
	}

	marker := " [CRITICAL - Max level reached]"
	message := fmt.Sprintf("Project %s has reached maximum escalation level. Immediate action required.",
		c.Project.ProjectCode)
	if frozen {
		marker = " [CRITICAL - Max level reached, tranche frozen]"
		message = fmt.Sprintf("Project %s has reached maximum escalation level. Next tranche frozen. Immediate action required.",
			c.Project.ProjectCode)
	}

	if err := s.store.FlagRequiresAdminAction(ctx, current.ID, marker); err != nil {
		if errors.Is(err, ErrNotOpen) {
			// Resolved between the stale scan and the flag; a resolved
			// escalation stays resolved and the admins are not alerted.
			s.logger.Info("Escalation left open state before max-level flag",
				zap.Int("escalation_id", current.ID),
			)
			return nil
		}
		return fmt.Errorf("flag escalation: %w", err)
	}

	metrics.IncEscalationAdvanced("max_level")
	s.logger.Warn("Maximum escalation level reached",
		zap.Int("escalation_id", current.ID),
		zap.Int("project_id", current.ProjectID),
		zap.Bool("tranche_frozen", frozen),
	)

	admins, err := s.store.FindUsersByRole(ctx, RoleQuery{Role: rbac.RoleCentralAdmin})
	if err != nil {
		s.logger.Error("Failed to list central admins", zap.Error(err))
		return nil
	}
	for _, admin := range admins {
		s.notify(ctx, admin, Notice{
			Kind:          model.NotificationCriticalEscalation,
			Title:         "Critical: Maximum Escalation Reached",
			Message:       message,
			ReferenceID:   current.ID,
			ReferenceType: "escalation",
		})
	}
	return nil
}

// Resolve closes an escalation by human action: the escalation becomes
// resolved with the given notes, its linked milestone is completed, and
// every frozen tranche of the project returns to pending.
func (s *Service) Resolve(ctx context.Context, escalationID int, notes string) (*model.Escalation, error) {
	resolved, err := s.store.ResolveEscalation(ctx, escalationID, notes, s.now())
	if err != nil {
		return nil, err
	}

	metrics.EscalationsResolved.Inc()
	s.logger.Info("Escalation resolved",
		zap.Int("escalation_id", resolved.ID),
		zap.Int("project_id", resolved.ProjectID),
	)
	return resolved, nil
}

// CreateParams describes a manually raised escalation.
type CreateParams struct {
	ProjectID   int
	MilestoneID *int
	Level       int
	Type        string
	Description string
	EscalatedTo int
}

// Create raises an escalation outside the sweep, e.g. by a nodal officer
// flagging an issue from the dashboard. The same open-escalation guard
// applies when a milestone is referenced.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.Escalation, error) {
	if p.Level < model.MinEscalationLevel || p.Level > model.MaxEscalationLevel {
		return nil, fmt.Errorf("escalation level must be between %d and %d",
			model.MinEscalationLevel, model.MaxEscalationLevel)
	}
	if p.Type == "" {
		p.Type = model.EscalationTypeManual
	}

	esc := &model.Escalation{
		ProjectID:   p.ProjectID,
		MilestoneID: p.MilestoneID,
		Level:       p.Level,
		Type:        p.Type,
		Description: p.Description,
		Status:      model.EscalationOpen,
		EscalatedTo: p.EscalatedTo,
	}

	created, err := s.store.InsertOpenEscalation(ctx, esc)
	if err != nil {
		return nil, fmt.Errorf("insert escalation: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("an open escalation already exists for this milestone")
	}

	metrics.IncEscalationCreated(strconv.Itoa(esc.Level))
	s.logger.Info("Escalation created manually",
		zap.Int("escalation_id", esc.ID),
		zap.Int("level", esc.Level),
		zap.Int("project_id", esc.ProjectID),
	)

	s.notifyUser(ctx, esc.EscalatedTo, Notice{
		Kind:          model.NotificationEscalation,
		Title:         fmt.Sprintf("Escalation Alert - Level %d", esc.Level),
		Message:       esc.Description,
		ReferenceID:   esc.ID,
		ReferenceType: "escalation",
	})
	return esc, nil
}

// findRecipient resolves the responsible party for a level, returning nil
// when no matching user is configured.
func (s *Service) findRecipient(ctx context.Context, level int, p model.Project) (*model.User, error) {
	recipient, ok := ResolveRecipient(level, p)
	if !ok {
		return nil, fmt.Errorf("no recipient mapping for level %d", level)
	}

	if recipient.UserID != 0 {
		return s.store.GetUser(ctx, recipient.UserID)
	}

	users, err := s.store.FindUsersByRole(ctx, recipient.Query)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// notifyUser looks the user up for phone enrichment, then dispatches.
func (s *Service) notifyUser(ctx context.Context, userID int, n Notice) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil || user == nil {
		s.logger.Warn("Escalated-to user not found, skipping notification",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return
	}
	s.notify(ctx, *user, n)
}

// notify queues a notice for the user. Delivery failures are logged and
// never affect the state transition that produced the notice.
func (s *Service) notify(ctx context.Context, user model.User, n Notice) {
	n.UserID = user.ID
	n.PhoneNumber = user.Phone
	if err := s.notifier.Notify(ctx, n); err != nil {
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		s.logger.Error("Failed to queue notification",
			zap.Int("user_id", user.ID),
			zap.String("kind", n.Kind),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationsDispatched.WithLabelValues("queued").Inc()
}

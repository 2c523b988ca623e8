package escalation

import (
	"context"
	"sort"
	"sync"
	"time"

	"fundportal/internal/model"
)

// memStore is an in-memory Store with the same transactional semantics as
// the real repositories, used to exercise the engine without a database.
type memStore struct {
	mu sync.Mutex

	projects   map[int]*model.Project
	milestones map[int]*model.Milestone
	escalation map[int]*model.Escalation
	tranches   map[int]*model.Tranche
	users      map[int]*model.User

	nextEscalationID int
	clock            func() time.Time

	// optional error injection
	failFreeze bool
}

func newMemStore(clock func() time.Time) *memStore {
	return &memStore{
		projects:         make(map[int]*model.Project),
		milestones:       make(map[int]*model.Milestone),
		escalation:       make(map[int]*model.Escalation),
		tranches:         make(map[int]*model.Tranche),
		users:            make(map[int]*model.User),
		nextEscalationID: 1,
		clock:            clock,
	}
}

func (m *memStore) addProject(p model.Project) {
	m.projects[p.ID] = &p
}

func (m *memStore) addMilestone(ms model.Milestone) {
	m.milestones[ms.ID] = &ms
}

func (m *memStore) addTranche(t model.Tranche) {
	m.tranches[t.ID] = &t
}

func (m *memStore) addUser(u model.User) {
	m.users[u.ID] = &u
}

func (m *memStore) addEscalation(e model.Escalation) {
	if e.ID >= m.nextEscalationID {
		m.nextEscalationID = e.ID + 1
	}
	m.escalation[e.ID] = &e
}

func (m *memStore) getEscalation(id int) model.Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.escalation[id]
}

func (m *memStore) getMilestone(id int) model.Milestone {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.milestones[id]
}

func (m *memStore) getTranche(id int) model.Tranche {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tranches[id]
}

func (m *memStore) openEscalations() []model.Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Escalation
	for _, e := range m.escalation {
		if e.Status == model.EscalationOpen {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) FindOverdueMilestones(ctx context.Context, now time.Time) ([]model.OverdueMilestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.OverdueMilestone
	for _, ms := range m.milestones {
		if !ms.ExpectedDate.Before(now) {
			continue
		}
		if ms.Status != model.MilestonePending && ms.Status != model.MilestoneInProgress {
			continue
		}
		if ms.ActualDate != nil {
			continue
		}
		p, ok := m.projects[ms.ProjectID]
		if !ok {
			continue
		}
		out = append(out, model.OverdueMilestone{Milestone: *ms, Project: *p})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Milestone.ExpectedDate.Before(out[j].Milestone.ExpectedDate)
	})
	return out, nil
}

func (m *memStore) MarkMilestoneOverdue(ctx context.Context, milestoneID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.milestones[milestoneID]
	if !ok || ms.ActualDate != nil {
		return nil
	}
	ms.Status = model.MilestoneOverdue
	return nil
}

func (m *memStore) CompleteMilestone(ctx context.Context, milestoneID int, completedOn time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeMilestoneLocked(milestoneID, completedOn)
}

func (m *memStore) completeMilestoneLocked(milestoneID int, completedOn time.Time) error {
	ms, ok := m.milestones[milestoneID]
	if !ok {
		return nil
	}
	ms.Status = model.MilestoneCompleted
	d := completedOn
	ms.ActualDate = &d
	return nil
}

func (m *memStore) InsertOpenEscalation(ctx context.Context, esc *model.Escalation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertOpenLocked(esc)
}

func (m *memStore) insertOpenLocked(esc *model.Escalation) (bool, error) {
	if esc.MilestoneID != nil {
		for _, e := range m.escalation {
			if e.Status == model.EscalationOpen && e.MilestoneID != nil && *e.MilestoneID == *esc.MilestoneID {
				return false, nil
			}
		}
	}

	esc.ID = m.nextEscalationID
	m.nextEscalationID++
	esc.CreatedAt = m.clock()
	esc.UpdatedAt = esc.CreatedAt
	copied := *esc
	m.escalation[esc.ID] = &copied
	return true, nil
}

func (m *memStore) FindStaleOpenEscalations(ctx context.Context, cutoff time.Time) ([]model.EscalationCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.EscalationCase
	for _, e := range m.escalation {
		if e.Status != model.EscalationOpen || e.CreatedAt.After(cutoff) {
			continue
		}
		p, ok := m.projects[e.ProjectID]
		if !ok {
			continue
		}
		out = append(out, model.EscalationCase{Escalation: *e, Project: *p})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Escalation.ID < out[j].Escalation.ID
	})
	return out, nil
}

func (m *memStore) CloseEscalation(ctx context.Context, escalationID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked(escalationID)
}

func (m *memStore) closeLocked(escalationID int) error {
	e, ok := m.escalation[escalationID]
	if !ok || e.Status != model.EscalationOpen {
		return ErrNotOpen
	}
	e.Status = model.EscalationClosed
	e.UpdatedAt = m.clock()
	return nil
}

func (m *memStore) AdvanceEscalation(ctx context.Context, currentID int, next *model.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.escalation[currentID]
	if !ok || current.Status != model.EscalationOpen {
		return ErrNotOpen
	}
	current.Status = model.EscalationClosed
	current.UpdatedAt = m.clock()

	created, err := m.insertOpenLocked(next)
	if err != nil {
		current.Status = model.EscalationOpen
		return err
	}
	if !created {
		current.Status = model.EscalationOpen
		return ErrNotOpen
	}
	return nil
}

func (m *memStore) FlagRequiresAdminAction(ctx context.Context, escalationID int, marker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.escalation[escalationID]
	if !ok || e.Status != model.EscalationOpen {
		return ErrNotOpen
	}
	e.Status = model.EscalationRequiresAdminAction
	e.Description += marker
	e.UpdatedAt = m.clock()
	return nil
}

func (m *memStore) ResolveEscalation(ctx context.Context, escalationID int, notes string, now time.Time) (*model.Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.escalation[escalationID]
	if !ok {
		return nil, ErrNotFound
	}
	if e.Status == model.EscalationResolved {
		return nil, ErrAlreadyResolved
	}

	e.Status = model.EscalationResolved
	t := now
	e.ResolvedAt = &t
	e.ResolutionNotes = notes
	e.UpdatedAt = now

	if e.MilestoneID != nil {
		if err := m.completeMilestoneLocked(*e.MilestoneID, now); err != nil {
			return nil, err
		}
	}

	for _, tr := range m.tranches {
		if tr.ProjectID == e.ProjectID && tr.Status == model.TrancheFrozen {
			tr.Status = model.TranchePending
		}
	}

	copied := *e
	return &copied, nil
}

func (m *memStore) FindEarliestPendingTranche(ctx context.Context, projectID int) (*model.Tranche, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var earliest *model.Tranche
	for _, t := range m.tranches {
		if t.ProjectID != projectID || t.Status != model.TranchePending {
			continue
		}
		if earliest == nil || t.TrancheNumber < earliest.TrancheNumber {
			earliest = t
		}
	}
	if earliest == nil {
		return nil, nil
	}
	copied := *earliest
	return &copied, nil
}

func (m *memStore) FreezeTranche(ctx context.Context, trancheID int, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFreeze {
		return errFreezeInjected
	}

	t, ok := m.tranches[trancheID]
	if !ok || t.Status != model.TranchePending {
		return nil
	}
	t.Status = model.TrancheFrozen
	t.Notes = note
	return nil
}

func (m *memStore) GetUser(ctx context.Context, userID int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) FindUsersByRole(ctx context.Context, q RoleQuery) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.User
	for _, u := range m.users {
		if u.Role != q.Role {
			continue
		}
		if q.State != "" && u.State != q.State {
			continue
		}
		if q.District != "" && u.District != q.District {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// recordingNotifier collects notices instead of delivering them.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
	fail    bool
}

func (n *recordingNotifier) Notify(ctx context.Context, notice Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errNotifyInjected
	}
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) all() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.notices))
	copy(out, n.notices)
	return out
}

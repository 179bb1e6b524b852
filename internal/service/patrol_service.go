package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streetwatch/patrol-log/internal/model"
	"github.com/streetwatch/patrol-log/internal/queue"
	"github.com/streetwatch/patrol-log/internal/repository"
)

// Session identifies the acting user. A zero Session is unauthenticated.
type Session struct {
	UserID uint64
	Email  string
}

// Valid reports whether the session carries an authenticated user.
func (s Session) Valid() bool { return s.UserID != 0 }

// PatrolStore is the persistence surface the controller needs. The MySQL
// repository implements it; tests substitute an in-memory fake.
type PatrolStore interface {
	Create(ctx context.Context, p *model.Patrol) error
	GetByIDForOwner(ctx context.Context, id string, ownerID uint64) (*model.Patrol, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Patrol, error)
	ActiveByOwner(ctx context.Context, ownerID uint64) (*model.Patrol, error)
	UpdateStatistics(ctx context.Context, id string, ownerID uint64, stats model.StatMap) error
	UpdateContactStatistics(ctx context.Context, id string, ownerID uint64, stats model.StatMap) error
	UpdateNotes(ctx context.Context, id string, ownerID uint64, notes string) error
	UpdateDetails(ctx context.Context, id string, ownerID uint64, d model.PatrolDetails) error
	Close(ctx context.Context, id string, ownerID uint64, endTime time.Time) error
}

// EventPublisher emits change notifications after successful writes.
// Publish failures are non-fatal; the write already succeeded.
type EventPublisher interface {
	PatrolChanged(ctx context.Context, ev queue.PatrolChangedEvent) error
}

// PatrolService orchestrates all mutations of a patrol session. Writes to
// the same patrol are serialized in-process with a per-patrol lock so two
// rapid increments from one client cannot interleave their read-modify-write
// cycles; cross-client races remain last-write-wins at the store.
type PatrolService struct {
	store  PatrolStore
	events EventPublisher // optional

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewPatrolService builds a controller over the given store. events may be
// nil when no change feed is configured.
func NewPatrolService(store PatrolStore, events EventPublisher) *PatrolService {
	return &PatrolService{
		store:  store,
		events: events,
		locks:  make(map[string]*sync.Mutex),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *PatrolService) patrolLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// storeErr translates repository sentinels into the controller's error
// taxonomy and wraps everything else as a StoreError.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrForbidden):
		return ErrNotOwner
	case errors.Is(err, repository.ErrPatrolNotFound):
		return ErrPatrolNotFound
	case errors.Is(err, repository.ErrPatrolCompleted):
		return ErrPatrolClosed
	default:
		return &StoreError{Op: op, Err: err}
	}
}

func (s *PatrolService) publish(ctx context.Context, p *model.Patrol, action string) {
	if s.events == nil {
		return
	}
	_ = s.events.PatrolChanged(ctx, queue.PatrolChangedEvent{
		PatrolID:   p.ID,
		OwnerID:    p.OwnerID,
		Action:     action,
		OccurredAt: s.now().Format(time.RFC3339),
	})
}

// StartForm carries the new-patrol form fields.
type StartForm struct {
	Location        string
	TeamLeader      string
	TeamMembers     string
	StartTime       time.Time
	PoliceCadNumber string
}

// Start creates a new active patrol with zeroed statistics and contact
// matrix and returns it. Location and team leader are required; a zero
// start time defaults to now.
func (s *PatrolService) Start(ctx context.Context, sess Session, form StartForm) (*model.Patrol, error) {
	if !sess.Valid() {
		return nil, ErrNoSession
	}
	if strings.TrimSpace(form.Location) == "" {
		return nil, &ValidationError{Field: "location", Reason: "required"}
	}
	if strings.TrimSpace(form.TeamLeader) == "" {
		return nil, &ValidationError{Field: "team_leader", Reason: "required"}
	}
	start := form.StartTime
	if start.IsZero() {
		start = s.now()
	}
	cad := strings.TrimSpace(form.PoliceCadNumber)
	p := &model.Patrol{
		ID:                uuid.NewString(),
		OwnerID:           sess.UserID,
		Location:          form.Location,
		TeamLeader:        form.TeamLeader,
		TeamMembers:       form.TeamMembers,
		StartTime:         start.UTC(),
		NotifiedPolice:    cad != "",
		PoliceCadNumber:   cad,
		Status:            model.StatusActive,
		Statistics:        model.ZeroStatistics(),
		ContactStatistics: model.ZeroContactStatistics(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, storeErr("create patrol", err)
	}
	s.publish(ctx, p, "created")
	return p, nil
}

// Get loads one patrol owned by the session user.
func (s *PatrolService) Get(ctx context.Context, sess Session, id string) (*model.Patrol, error) {
	if !sess.Valid() {
		return nil, ErrNoSession
	}
	p, err := s.store.GetByIDForOwner(ctx, id, sess.UserID)
	if err != nil {
		return nil, storeErr("load patrol", err)
	}
	return p, nil
}

// List returns all of the user's patrols, newest start time first.
func (s *PatrolService) List(ctx context.Context, sess Session) ([]model.Patrol, error) {
	if !sess.Valid() {
		return nil, ErrNoSession
	}
	patrols, err := s.store.ListByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, storeErr("list patrols", err)
	}
	return patrols, nil
}

// Active returns the user's current active patrol, or ErrPatrolNotFound.
func (s *PatrolService) Active(ctx context.Context, sess Session) (*model.Patrol, error) {
	if !sess.Valid() {
		return nil, ErrNoSession
	}
	p, err := s.store.ActiveByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, storeErr("load active patrol", err)
	}
	return p, nil
}

// IncrementStatistic applies a +1/-1 delta to one of the nine counters,
// clamping at zero before the write so the stored value is never negative.
// The updated counter value is returned after the store acknowledges.
func (s *PatrolService) IncrementStatistic(ctx context.Context, sess Session, id, key string, delta int) (int, error) {
	if !sess.Valid() {
		return 0, ErrNoSession
	}
	if !model.IsCounterKey(key) {
		return 0, &ValidationError{Field: "counter", Reason: "unknown counter name"}
	}
	if delta != 1 && delta != -1 {
		return 0, &ValidationError{Field: "delta", Reason: "must be +1 or -1"}
	}
	lock := s.patrolLock(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.store.GetByIDForOwner(ctx, id, sess.UserID)
	if err != nil {
		return 0, storeErr("load patrol", err)
	}
	next := p.Statistics.Get(key) + delta
	if next < 0 {
		next = 0
	}
	stats := p.Statistics.Clone()
	stats[key] = next
	if err := s.store.UpdateStatistics(ctx, id, sess.UserID, stats); err != nil {
		return 0, storeErr("update statistics", err)
	}
	s.publish(ctx, p, "statistics")
	return next, nil
}

// AddContact increments the matrix cell for the given demographic
// combination by one. All three dimensions are required; nothing is
// written when any is missing or unknown.
func (s *PatrolService) AddContact(ctx context.Context, sess Session, id, ethnicity, gender, ageBand string) (*model.Patrol, error) {
	if !sess.Valid() {
		return nil, ErrNoSession
	}
	if ethnicity == "" || gender == "" || ageBand == "" {
		return nil, &ValidationError{Field: "contact", Reason: "ethnicity, gender and age band are all required"}
	}
	key, err := model.ContactKey(ethnicity, gender, ageBand)
	if err != nil {
		return nil, &ValidationError{Field: "contact", Reason: err.Error()}
	}
	lock := s.patrolLock(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.store.GetByIDForOwner(ctx, id, sess.UserID)
	if err != nil {
		return nil, storeErr("load patrol", err)
	}
	stats := p.ContactStatistics.Clone()
	stats[key] = stats.Get(key) + 1
	if err := s.store.UpdateContactStatistics(ctx, id, sess.UserID, stats); err != nil {
		return nil, storeErr("update contact statistics", err)
	}
	p.ContactStatistics = stats
	s.publish(ctx, p, "contact")
	return p, nil
}

// SaveNotes overwrites the patrol's notes verbatim.
func (s *PatrolService) SaveNotes(ctx context.Context, sess Session, id, notes string) error {
	if !sess.Valid() {
		return ErrNoSession
	}
	p, err := s.store.GetByIDForOwner(ctx, id, sess.UserID)
	if err != nil {
		return storeErr("load patrol", err)
	}
	if err := s.store.UpdateNotes(ctx, id, sess.UserID, notes); err != nil {
		return storeErr("update notes", err)
	}
	s.publish(ctx, p, "notes")
	return nil
}

// DetailsForm carries the editable patrol header fields.
type DetailsForm struct {
	Location        string
	TeamLeader      string
	TeamMembers     string
	StartTime       time.Time
	PoliceCadNumber string
}

// UpdateDetails overwrites the patrol's header fields. NotifiedPolice is
// derived from the CAD number being non-empty, never taken from input.
func (s *PatrolService) UpdateDetails(ctx context.Context, sess Session, id string, form DetailsForm) error {
	if !sess.Valid() {
		return ErrNoSession
	}
	if strings.TrimSpace(form.Location) == "" {
		return &ValidationError{Field: "location", Reason: "required"}
	}
	if strings.TrimSpace(form.TeamLeader) == "" {
		return &ValidationError{Field: "team_leader", Reason: "required"}
	}
	if form.StartTime.IsZero() {
		return &ValidationError{Field: "start_time", Reason: "required"}
	}
	p, err := s.store.GetByIDForOwner(ctx, id, sess.UserID)
	if err != nil {
		return storeErr("load patrol", err)
	}
	cad := strings.TrimSpace(form.PoliceCadNumber)
	det := model.PatrolDetails{
		Location:        form.Location,
		TeamLeader:      form.TeamLeader,
		TeamMembers:     form.TeamMembers,
		StartTime:       form.StartTime.UTC(),
		PoliceCadNumber: cad,
		NotifiedPolice:  cad != "",
	}
	if err := s.store.UpdateDetails(ctx, id, sess.UserID, det); err != nil {
		return storeErr("update details", err)
	}
	s.publish(ctx, p, "details")
	return nil
}

// Close completes an active patrol, stamping end time as now (or the start
// time, if the patrol was future-dated, so end >= start always holds).
// Closing an already-completed patrol fails with ErrPatrolClosed.
func (s *PatrolService) Close(ctx context.Context, sess Session, id string) (*model.Patrol, error) {
	if !sess.Valid() {
		return nil, ErrNoSession
	}
	lock := s.patrolLock(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.store.GetByIDForOwner(ctx, id, sess.UserID)
	if err != nil {
		return nil, storeErr("load patrol", err)
	}
	if p.Completed() {
		return nil, ErrPatrolClosed
	}
	end := s.now()
	if end.Before(p.StartTime) {
		end = p.StartTime
	}
	if err := s.store.Close(ctx, id, sess.UserID, end); err != nil {
		return nil, storeErr("close patrol", err)
	}
	p.Status = model.StatusCompleted
	p.EndTime = &end
	s.publish(ctx, p, "closed")
	return p, nil
}

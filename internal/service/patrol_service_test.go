package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetwatch/patrol-log/internal/model"
	"github.com/streetwatch/patrol-log/internal/queue"
	"github.com/streetwatch/patrol-log/internal/repository"
)

// memStore is an in-memory PatrolStore mirroring the MySQL repository's
// sentinel behavior, so the controller can be exercised without a database.
type memStore struct {
	patrols map[string]*model.Patrol
}

func newMemStore() *memStore {
	return &memStore{patrols: make(map[string]*model.Patrol)}
}

func (s *memStore) get(id string, ownerID uint64) (*model.Patrol, error) {
	p, ok := s.patrols[id]
	if !ok {
		return nil, repository.ErrPatrolNotFound
	}
	if p.OwnerID != ownerID {
		return nil, repository.ErrForbidden
	}
	return p, nil
}

func (s *memStore) Create(_ context.Context, p *model.Patrol) error {
	cp := *p
	s.patrols[p.ID] = &cp
	return nil
}

func (s *memStore) GetByIDForOwner(_ context.Context, id string, ownerID uint64) (*model.Patrol, error) {
	p, err := s.get(id, ownerID)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.Statistics = p.Statistics.Clone()
	cp.ContactStatistics = p.ContactStatistics.Clone()
	return &cp, nil
}

func (s *memStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.Patrol, error) {
	var out []model.Patrol
	for _, p := range s.patrols {
		if p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	// Newest start time first, same contract as the SQL repository.
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

func (s *memStore) ActiveByOwner(_ context.Context, ownerID uint64) (*model.Patrol, error) {
	for _, p := range s.patrols {
		if p.OwnerID == ownerID && p.Status == model.StatusActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrPatrolNotFound
}

func (s *memStore) UpdateStatistics(_ context.Context, id string, ownerID uint64, stats model.StatMap) error {
	p, err := s.get(id, ownerID)
	if err != nil {
		return err
	}
	p.Statistics = stats
	return nil
}

func (s *memStore) UpdateContactStatistics(_ context.Context, id string, ownerID uint64, stats model.StatMap) error {
	p, err := s.get(id, ownerID)
	if err != nil {
		return err
	}
	p.ContactStatistics = stats
	return nil
}

func (s *memStore) UpdateNotes(_ context.Context, id string, ownerID uint64, notes string) error {
	p, err := s.get(id, ownerID)
	if err != nil {
		return err
	}
	p.Notes = notes
	return nil
}

func (s *memStore) UpdateDetails(_ context.Context, id string, ownerID uint64, d model.PatrolDetails) error {
	p, err := s.get(id, ownerID)
	if err != nil {
		return err
	}
	p.Location = d.Location
	p.TeamLeader = d.TeamLeader
	p.TeamMembers = d.TeamMembers
	p.StartTime = d.StartTime
	p.PoliceCadNumber = d.PoliceCadNumber
	p.NotifiedPolice = d.NotifiedPolice
	return nil
}

func (s *memStore) Close(_ context.Context, id string, ownerID uint64, endTime time.Time) error {
	p, err := s.get(id, ownerID)
	if err != nil {
		return err
	}
	if p.Status != model.StatusActive {
		return repository.ErrPatrolCompleted
	}
	p.Status = model.StatusCompleted
	end := endTime
	p.EndTime = &end
	return nil
}

// recordingPublisher captures emitted events for assertions.
type recordingPublisher struct {
	events []queue.PatrolChangedEvent
}

func (r *recordingPublisher) PatrolChanged(_ context.Context, ev queue.PatrolChangedEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) actions() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}

func newTestService() (*PatrolService, *memStore, *recordingPublisher) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewPatrolService(store, pub)
	return svc, store, pub
}

var (
	ctx   = context.Background()
	alice = Session{UserID: 1, Email: "alice@example.org"}
	bob   = Session{UserID: 2, Email: "bob@example.org"}
)

func startPatrol(t *testing.T, svc *PatrolService, sess Session) *model.Patrol {
	t.Helper()
	p, err := svc.Start(ctx, sess, StartForm{Location: "High Street", TeamLeader: "Sam"})
	require.NoError(t, err)
	return p
}

func TestStartCreatesActivePatrol(t *testing.T) {
	svc, _, pub := newTestService()

	p := startPatrol(t, svc, alice)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, alice.UserID, p.OwnerID)
	assert.Equal(t, model.StatusActive, p.Status)
	assert.Nil(t, p.EndTime)
	assert.False(t, p.NotifiedPolice)
	assert.False(t, p.StartTime.IsZero(), "zero start time defaults to now")
	assert.Len(t, p.Statistics, 9)
	assert.Len(t, p.ContactStatistics, 32)
	assert.Equal(t, []string{"created"}, pub.actions())
}

func TestStartDerivesNotifiedPolice(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Start(ctx, alice, StartForm{
		Location:        "High Street",
		TeamLeader:      "Sam",
		PoliceCadNumber: "  CAD-123  ",
	})
	require.NoError(t, err)
	assert.True(t, p.NotifiedPolice)
	assert.Equal(t, "CAD-123", p.PoliceCadNumber)
}

func TestStartValidation(t *testing.T) {
	svc, _, _ := newTestService()

	var vErr *ValidationError
	_, err := svc.Start(ctx, alice, StartForm{TeamLeader: "Sam"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "location", vErr.Field)

	_, err = svc.Start(ctx, alice, StartForm{Location: "High Street"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "team_leader", vErr.Field)

	_, err = svc.Start(ctx, Session{}, StartForm{Location: "x", TeamLeader: "y"})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestIncrementStatistic(t *testing.T) {
	svc, _, pub := newTestService()
	p := startPatrol(t, svc, alice)

	v, err := svc.IncrementStatistic(ctx, alice, p.ID, model.CounterConversations, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = svc.IncrementStatistic(ctx, alice, p.ID, model.CounterConversations, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	got, err := svc.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Statistics.Get(model.CounterConversations))
	assert.Contains(t, pub.actions(), "statistics")
}

func TestIncrementStatisticClampsAtZero(t *testing.T) {
	svc, _, _ := newTestService()
	p := startPatrol(t, svc, alice)

	v, err := svc.IncrementStatistic(ctx, alice, p.ID, model.CounterPrayers, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, v, "decrement at zero stays at zero")

	_, err = svc.IncrementStatistic(ctx, alice, p.ID, model.CounterPrayers, 1)
	require.NoError(t, err)
	v, err = svc.IncrementStatistic(ctx, alice, p.ID, model.CounterPrayers, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestIncrementStatisticRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService()
	p := startPatrol(t, svc, alice)

	var vErr *ValidationError
	_, err := svc.IncrementStatistic(ctx, alice, p.ID, "bogus_counter", 1)
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.IncrementStatistic(ctx, alice, p.ID, model.CounterPrayers, 5)
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.IncrementStatistic(ctx, alice, p.ID, model.CounterPrayers, 0)
	assert.ErrorAs(t, err, &vErr)
}

func TestIncrementStatisticOwnership(t *testing.T) {
	svc, _, _ := newTestService()
	p := startPatrol(t, svc, alice)

	_, err := svc.IncrementStatistic(ctx, bob, p.ID, model.CounterPrayers, 1)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.IncrementStatistic(ctx, alice, "no-such-id", model.CounterPrayers, 1)
	assert.ErrorIs(t, err, ErrPatrolNotFound)
}

func TestAddContact(t *testing.T) {
	svc, _, pub := newTestService()
	p := startPatrol(t, svc, alice)

	got, err := svc.AddContact(ctx, alice, p.ID, "white", "Male", "Over25")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ContactStatistics.Get("whiteMaleOver25"))

	got, err = svc.AddContact(ctx, alice, p.ID, "white", "Male", "Over25")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ContactStatistics.Get("whiteMaleOver25"))
	assert.Contains(t, pub.actions(), "contact")
}

func TestAddContactRequiresAllDimensions(t *testing.T) {
	svc, _, _ := newTestService()
	p := startPatrol(t, svc, alice)

	var vErr *ValidationError
	cases := [][3]string{
		{"", "Male", "Over25"},
		{"white", "", "Over25"},
		{"white", "Male", ""},
		{"white", "Male", "Over99"},
		{"klingon", "Male", "Over25"},
	}
	for _, c := range cases {
		_, err := svc.AddContact(ctx, alice, p.ID, c[0], c[1], c[2])
		assert.ErrorAs(t, err, &vErr, "%v", c)
	}

	// Nothing was recorded by the rejected attempts.
	got, err := svc.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	for _, k := range model.ContactKeys() {
		assert.Equal(t, 0, got.ContactStatistics.Get(k), k)
	}
}

func TestSaveNotes(t *testing.T) {
	svc, _, pub := newTestService()
	p := startPatrol(t, svc, alice)

	require.NoError(t, svc.SaveNotes(ctx, alice, p.ID, "met the outreach van at midnight"))
	got, err := svc.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "met the outreach van at midnight", got.Notes)
	assert.Contains(t, pub.actions(), "notes")

	assert.ErrorIs(t, svc.SaveNotes(ctx, bob, p.ID, "x"), ErrNotOwner)
}

func TestUpdateDetailsDerivesNotifiedPolice(t *testing.T) {
	svc, _, _ := newTestService()
	p := startPatrol(t, svc, alice)

	form := DetailsForm{
		Location:        "Market Square",
		TeamLeader:      "Alex",
		StartTime:       time.Date(2024, time.March, 2, 21, 0, 0, 0, time.UTC),
		PoliceCadNumber: "CAD-9",
	}
	require.NoError(t, svc.UpdateDetails(ctx, alice, p.ID, form))
	got, err := svc.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Market Square", got.Location)
	assert.True(t, got.NotifiedPolice)

	form.PoliceCadNumber = "   "
	require.NoError(t, svc.UpdateDetails(ctx, alice, p.ID, form))
	got, err = svc.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.False(t, got.NotifiedPolice, "clearing the CAD number clears the flag")
	assert.Equal(t, "", got.PoliceCadNumber)
}

func TestCloseCompletesOnce(t *testing.T) {
	svc, _, pub := newTestService()
	p := startPatrol(t, svc, alice)

	closed, err := svc.Close(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, closed.Status)
	require.NotNil(t, closed.EndTime)
	assert.False(t, closed.EndTime.Before(closed.StartTime), "end time never precedes start")
	assert.Contains(t, pub.actions(), "closed")

	_, err = svc.Close(ctx, alice, p.ID)
	assert.ErrorIs(t, err, ErrPatrolClosed)
}

func TestCloseFutureDatedPatrol(t *testing.T) {
	svc, _, _ := newTestService()
	future := time.Now().UTC().Add(48 * time.Hour)
	p, err := svc.Start(ctx, alice, StartForm{Location: "x", TeamLeader: "y", StartTime: future})
	require.NoError(t, err)

	closed, err := svc.Close(ctx, alice, p.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndTime)
	assert.True(t, closed.EndTime.Equal(closed.StartTime), "end clamps up to start")
}

func TestListNewestFirst(t *testing.T) {
	svc, _, _ := newTestService()

	times := []time.Time{
		time.Date(2024, time.January, 10, 21, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 5, 21, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 2, 21, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		_, err := svc.Start(ctx, alice, StartForm{Location: "x", TeamLeader: "y", StartTime: ts})
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, times[1], got[0].StartTime)
	assert.Equal(t, times[2], got[1].StartTime)
	assert.Equal(t, times[0], got[2].StartTime)
}

func TestActive(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Active(ctx, alice)
	assert.ErrorIs(t, err, ErrPatrolNotFound)

	p := startPatrol(t, svc, alice)
	got, err := svc.Active(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.Close(ctx, alice, p.ID)
	require.NoError(t, err)
	_, err = svc.Active(ctx, alice)
	assert.ErrorIs(t, err, ErrPatrolNotFound)
}

func TestStoreFailureWrapsAsStoreError(t *testing.T) {
	svc := NewPatrolService(failingStore{newMemStore()}, nil)

	_, err := svc.Get(ctx, alice, "id")
	var sErr *StoreError
	require.ErrorAs(t, err, &sErr)
	assert.ErrorIs(t, err, errBoom)
}

var errBoom = errors.New("boom")

type failingStore struct{ *memStore }

func (failingStore) GetByIDForOwner(context.Context, string, uint64) (*model.Patrol, error) {
	return nil, errBoom
}

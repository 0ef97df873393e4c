package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// memStore mirrors repository.PlayerStore: the change is saved even when the
// mutate func returns an error.
type memStore struct {
	mu      sync.Mutex
	players map[int64]game.PlayerState
	flags   []game.FraudFlag
	saves   int
}

func newMemStore(players ...game.PlayerState) *memStore {
	m := &memStore{players: make(map[int64]game.PlayerState)}
	for _, p := range players {
		m.players[p.UserID] = p
	}
	return m
}

func (m *memStore) Load(_ context.Context, userID int64) (game.PlayerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[userID]
	if !ok {
		return game.PlayerState{}, repository.ErrUserNotFound
	}
	return p.Clone(), nil
}

func (m *memStore) Mutate(ctx context.Context, userID int64, fn repository.MutateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	ch, err := fn(p.Clone())
	if ch.State != nil && ch.Apply != nil {
		if applyErr := ch.Apply(ctx, nil); applyErr != nil {
			return applyErr
		}
	}
	if ch.State != nil {
		m.players[userID] = ch.State.Clone()
		m.flags = append(m.flags, ch.Flags...)
		m.saves++
	}
	return err
}

func (m *memStore) get(userID int64) game.PlayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[userID]
}

type fakeSquads struct {
	mu    sync.Mutex
	err   error
	total int64
	calls int
}

func (f *fakeSquads) AddContribution(_ context.Context, _, _, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.total += amount
	return f.total, nil
}

type auditEntry struct {
	userID   int64
	action   string
	category string
	details  map[string]interface{}
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAudit) Log(_ context.Context, userID int64, action, category string, details map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{userID, action, category, details})
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.action)
	}
	return out
}

type pushed struct {
	id      int64
	event   string
	payload interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	users  []pushed
	squads []pushed
}

func (f *fakeNotifier) NotifyUser(userID int64, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, pushed{userID, event, payload})
}

func (f *fakeNotifier) NotifySquad(squadID int64, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.squads = append(f.squads, pushed{squadID, event, payload})
}

func (f *fakeNotifier) userEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.users {
		out = append(out, p.event)
	}
	return out
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc      *GameService
	store    *memStore
	tracker  *game.TapTracker
	squads   *fakeSquads
	audit    *fakeAudit
	notifier *fakeNotifier
	clock    *clock
}

func newFixture(t *testing.T, players ...game.PlayerState) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(players...),
		tracker:  game.NewTapTracker(time.Second, time.Minute),
		squads:   &fakeSquads{},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{},
		clock:    &clock{now: t0},
	}
	engine := game.NewEngine(game.StaticSettings(game.DefaultSettings()))
	f.svc = NewGameService(engine, f.store, f.tracker,
		WithSquads(f.squads),
		WithAudit(f.audit),
		WithNotifier(f.notifier),
		WithClock(f.clock.Now),
	)
	return f
}

func newPlayer(id int64) game.PlayerState {
	return game.NewPlayerState(id, game.DefaultSettings(), t0)
}

func TestTap_CreditsAndNotifies(t *testing.T) {
	f := newFixture(t, newPlayer(1))

	out, err := f.svc.Tap(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(10), out.Taps)
	assert.Equal(t, int64(10), out.Reward)
	assert.Equal(t, int64(490), out.Energy)
	assert.Equal(t, int64(10), out.Balance)
	assert.False(t, out.LeagueUp)

	st := f.store.get(1)
	assert.Equal(t, int64(10), st.Balance)
	assert.Equal(t, int64(10), st.TotalEarned)
	assert.Equal(t, t0, st.LastEnergyUpdate)

	hist := f.tracker.History(1, t0)
	assert.Equal(t, t0, hist.LastRequest)
	assert.Len(t, hist.Recent, 10)

	assert.Equal(t, []string{EventState}, f.notifier.userEvents())
	assert.Empty(t, f.audit.actions())
}

func TestTap_RateLimitedPersistsPenalty(t *testing.T) {
	f := newFixture(t, newPlayer(1))
	ctx := context.Background()

	_, err := f.svc.Tap(ctx, 1, 5)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Millisecond)
	_, err = f.svc.Tap(ctx, 1, 5)
	require.ErrorIs(t, err, game.ErrRateLimited)

	st := f.store.get(1)
	assert.Equal(t, int64(1), st.FraudScore)
	assert.Equal(t, int64(5), st.Balance, "rejected batch must not pay out")
	assert.False(t, st.Restricted)
	assert.Equal(t, []string{domain.AuditActionRateLimited}, f.audit.actions())

	// a rejected request does not move the gap reference
	assert.Equal(t, t0, f.tracker.History(1, f.clock.Now()).LastRequest)

	f.clock.Advance(time.Second)
	_, err = f.svc.Tap(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.store.get(1).Balance)
}

func TestTap_RestrictsAtThreshold(t *testing.T) {
	p := newPlayer(1)
	p.FraudScore = 49
	f := newFixture(t, p)
	ctx := context.Background()

	_, err := f.svc.Tap(ctx, 1, 1)
	require.NoError(t, err)

	_, err = f.svc.Tap(ctx, 1, 1)
	require.ErrorIs(t, err, game.ErrRateLimited)

	st := f.store.get(1)
	assert.True(t, st.Restricted)
	assert.Equal(t, int64(50), st.FraudScore)
	require.Len(t, f.store.flags, 1)
	assert.Equal(t, game.FlagRateAbuse, f.store.flags[0].FlagType)
	assert.Contains(t, f.audit.actions(), domain.AuditActionRestricted)
	assert.Contains(t, f.notifier.userEvents(), EventRestricted)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Tap(ctx, 1, 1)
	require.ErrorIs(t, err, game.ErrRestricted)
	assert.Equal(t, int64(50), f.store.get(1).FraudScore, "restricted taps add no score")
}

// commitFailStore runs the mutate func but fails to commit.
type commitFailStore struct {
	*memStore
	err error
}

func (c *commitFailStore) Mutate(_ context.Context, userID int64, fn repository.MutateFunc) error {
	p, err := c.Load(context.Background(), userID)
	if err != nil {
		return err
	}
	_, _ = fn(p)
	return c.err
}

func TestTap_StoreFailureLeavesNoSideEffects(t *testing.T) {
	p := newPlayer(1)
	p.FraudScore = 49
	f := newFixture(t, p)
	dbErr := errors.New("commit: connection reset")
	f.svc.store = &commitFailStore{memStore: f.store, err: dbErr}
	ctx := context.Background()

	_, err := f.svc.Tap(ctx, 1, 5)
	require.ErrorIs(t, err, dbErr)
	assert.Zero(t, f.tracker.Len(), "uncommitted taps are not tracked")

	f.tracker.Record(1, t0, 1)
	_, err = f.svc.Tap(ctx, 1, 5)
	require.ErrorIs(t, err, dbErr)

	assert.Empty(t, f.audit.actions(), "uncommitted penalty is not audited")
	assert.NotContains(t, f.notifier.userEvents(), EventRestricted)
	st := f.store.get(1)
	assert.Equal(t, int64(49), st.FraudScore)
	assert.False(t, st.Restricted)
	assert.Len(t, f.tracker.History(1, t0).Recent, 1)
}

func TestTap_InsufficientEnergyStillCountsAsRequest(t *testing.T) {
	p := newPlayer(1)
	p.Energy = 3
	f := newFixture(t, p)

	_, err := f.svc.Tap(context.Background(), 1, 10)
	var energyErr *game.EnergyError
	require.ErrorAs(t, err, &energyErr)
	assert.Equal(t, int64(3), energyErr.Current)
	assert.Equal(t, int64(10), energyErr.Required)

	st := f.store.get(1)
	assert.Equal(t, int64(3), st.Energy)
	assert.Zero(t, st.Balance)
	assert.Zero(t, f.store.saves)

	assert.Equal(t, t0, f.tracker.History(1, t0).LastRequest)
}

func TestTap_InvalidAndUnknown(t *testing.T) {
	f := newFixture(t, newPlayer(1))
	ctx := context.Background()

	_, err := f.svc.Tap(ctx, 1, 0)
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	_, err = f.svc.Tap(ctx, 99, 1)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Zero(t, f.tracker.Len())
}

func TestTap_SquadContribution(t *testing.T) {
	squadID := int64(7)
	p := newPlayer(1)
	p.SquadID = &squadID
	f := newFixture(t, p)

	_, err := f.svc.Tap(context.Background(), 1, 4)
	require.NoError(t, err)

	assert.Equal(t, 1, f.squads.calls)
	require.Len(t, f.notifier.squads, 1)
	assert.Equal(t, squadID, f.notifier.squads[0].id)
	assert.Equal(t, EventSquadScore, f.notifier.squads[0].event)
	assert.Equal(t, map[string]int64{"squad_id": 7, "total_score": 4}, f.notifier.squads[0].payload)
}

func TestTap_SquadFailureDoesNotFailTap(t *testing.T) {
	squadID := int64(7)
	p := newPlayer(1)
	p.SquadID = &squadID
	f := newFixture(t, p)
	f.squads.err = errors.New("connection reset")

	out, err := f.svc.Tap(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Balance)
	assert.Equal(t, int64(4), f.store.get(1).Balance)
	assert.Empty(t, f.notifier.squads)
}

func TestTap_LeagueUpIsAudited(t *testing.T) {
	p := newPlayer(1)
	p.TotalEarned = 4_995
	p.Balance = 4_995
	f := newFixture(t, p)

	out, err := f.svc.Tap(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.True(t, out.LeagueUp)
	assert.Equal(t, game.LeagueSilver, out.League)
	assert.Equal(t, []string{domain.AuditActionLeagueUp}, f.audit.actions())
}

func TestTap_ConcurrentRequestsAreSerialized(t *testing.T) {
	f := newFixture(t, newPlayer(1))
	var tick sync.Mutex
	next := t0
	f.svc.now = func() time.Time {
		tick.Lock()
		defer tick.Unlock()
		next = next.Add(time.Second)
		return next
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Tap(context.Background(), 1, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("tap failed: %v", err)
	}

	st := f.store.get(1)
	assert.Equal(t, int64(workers), st.Balance)
	assert.Equal(t, int64(workers), st.TotalEarned)
	assert.Zero(t, st.FraudScore)
	assert.Zero(t, f.svc.locks.size())
}

func TestBuyUpgrade(t *testing.T) {
	p := newPlayer(1)
	p.Balance = 600
	f := newFixture(t, p)
	ctx := context.Background()

	res, err := f.svc.BuyUpgrade(ctx, 1, game.UpgradeMultitap)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewLevel)
	assert.Equal(t, int64(500), res.Price)
	require.NotNil(t, res.NextPrice)
	assert.Equal(t, int64(1000), *res.NextPrice)

	st := f.store.get(1)
	assert.Equal(t, int64(100), st.Balance)
	assert.Equal(t, int64(2), st.TapPower)
	assert.Equal(t, []string{domain.AuditActionUpgrade}, f.audit.actions())

	_, err = f.svc.BuyUpgrade(ctx, 1, game.UpgradeMultitap)
	var balErr *game.BalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, int64(1000), balErr.Price)
	assert.Equal(t, int64(100), f.store.get(1).Balance)

	_, err = f.svc.BuyUpgrade(ctx, 1, game.UpgradeAutoTap)
	assert.ErrorIs(t, err, game.ErrLeagueLocked)
}

func TestClaimBoost(t *testing.T) {
	p := newPlayer(1)
	p.Energy = 0
	f := newFixture(t, p)
	ctx := context.Background()

	res, err := f.svc.ClaimBoost(ctx, 1, game.BoostFullEnergy)
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.Energy)
	assert.Equal(t, t0.Add(8*time.Hour), res.NextAvailableAt)
	assert.Equal(t, int64(500), f.store.get(1).Energy)

	f.clock.Advance(time.Hour)
	_, err = f.svc.ClaimBoost(ctx, 1, game.BoostFullEnergy)
	var cd *game.CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 7*time.Hour, cd.Remaining)

	_, err = f.svc.ClaimBoost(ctx, 1, game.BoostType("nitro"))
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestClaimDaily(t *testing.T) {
	f := newFixture(t, newPlayer(1))
	ctx := context.Background()

	res, err := f.svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, int64(100), f.store.get(1).Balance)

	_, err = f.svc.ClaimDaily(ctx, 1)
	assert.ErrorIs(t, err, game.ErrOnCooldown)

	f.clock.Advance(24 * time.Hour)
	res, err = f.svc.ClaimDaily(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Streak)
	assert.Equal(t, int64(250), f.store.get(1).Balance)
}

func TestRefreshAndState(t *testing.T) {
	p := newPlayer(1)
	p.Energy = 100
	f := newFixture(t, p)
	ctx := context.Background()

	f.clock.Advance(10 * time.Second)

	snap, err := f.svc.State(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(110), snap.Energy)
	assert.Equal(t, t0, f.store.get(1).LastEnergyUpdate, "State must not write")

	snap, err = f.svc.Refresh(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(110), snap.Energy)
	st := f.store.get(1)
	assert.Equal(t, int64(110), st.Energy)
	assert.Equal(t, t0.Add(10*time.Second), st.LastEnergyUpdate)
}

func TestRejectionReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{game.ErrRestricted, "restricted"},
		{game.ErrRateLimited, "rate_limited"},
		{&game.EnergyError{Current: 1, Required: 2}, "energy"},
		{game.ErrInvalidInput, "invalid"},
		{repository.ErrUserNotFound, "not_found"},
		{errors.New("conn refused"), "internal"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rejectionReason(tc.err), tc.err.Error())
	}
}

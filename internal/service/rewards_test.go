package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTasks struct {
	mu      sync.Mutex
	catalog map[int64]game.Task
	done    map[[2]int64]int64
	failErr error
}

func newFakeTasks(tasks ...game.Task) *fakeTasks {
	f := &fakeTasks{catalog: map[int64]game.Task{}, done: map[[2]int64]int64{}}
	for _, t := range tasks {
		f.catalog[t.ID] = t
	}
	return f
}

func (f *fakeTasks) List(_ context.Context, userID int64) ([]repository.TaskEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.TaskEntry
	for id := int64(1); id <= int64(len(f.catalog)); id++ {
		_, done := f.done[[2]int64{userID, id}]
		out = append(out, repository.TaskEntry{Task: f.catalog[id], Completed: done})
	}
	return out, nil
}

func (f *fakeTasks) Get(_ context.Context, userID, taskID int64) (repository.TaskEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.catalog[taskID]
	if !ok {
		return repository.TaskEntry{}, fmt.Errorf("%w: task %d", game.ErrNotFound, taskID)
	}
	_, done := f.done[[2]int64{userID, taskID}]
	return repository.TaskEntry{Task: t, Completed: done}, nil
}

func (f *fakeTasks) MarkCompleted(_ context.Context, _ repository.DBTX, userID, taskID, reward int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	key := [2]int64{userID, taskID}
	if _, ok := f.done[key]; ok {
		return game.ErrAlreadyClaimed
	}
	f.done[key] = reward
	return nil
}

type fakeReferrals struct {
	mu    sync.Mutex
	codes map[string]int64
	refs  []repository.Referral
}

func (f *fakeReferrals) CodeFor(_ context.Context, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for code, id := range f.codes {
		if id == userID {
			return code, nil
		}
	}
	code := fmt.Sprintf("code%d", userID)
	f.codes[code] = userID
	return code, nil
}

func (f *fakeReferrals) InviterByCode(_ context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.codes[code]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	return id, nil
}

func (f *fakeReferrals) Record(_ context.Context, _ repository.DBTX, ref repository.Referral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.refs {
		if r.InviteeID == ref.InviteeID {
			return repository.ErrAlreadyReferred
		}
	}
	f.refs = append(f.refs, ref)
	return nil
}

func (f *fakeReferrals) ListByInviter(_ context.Context, userID int64, _ int) ([]repository.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Referral
	for _, r := range f.refs {
		if r.InviterID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReferrals) Stats(ctx context.Context, userID int64) (repository.ReferralStats, error) {
	refs, _ := f.ListByInviter(ctx, userID, 0)
	st := repository.ReferralStats{TotalReferrals: len(refs)}
	for _, r := range refs {
		st.TotalRewards += r.InviterReward
	}
	return st, nil
}

func TestClaimTask(t *testing.T) {
	tasks := newFakeTasks(
		game.Task{ID: 1, Title: "Welcome Tap", Reward: 100},
		game.Task{ID: 2, Title: "Reach Gold League", Reward: 5_000, RequiredLeague: game.LeagueSilver},
	)
	p := newPlayer(1)
	p.Balance, p.TotalEarned = 4_950, 4_950
	f := newFixture(t, p)
	f.svc.tasks = tasks
	ctx := context.Background()

	views, err := f.svc.Tasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, game.TaskAvailable, views[0].Status)
	assert.Equal(t, game.TaskLocked, views[1].Status)

	_, err = f.svc.ClaimTask(ctx, 1, 2)
	assert.ErrorIs(t, err, game.ErrLeagueLocked)

	claim, err := f.svc.ClaimTask(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), claim.Reward)
	assert.Equal(t, int64(5_050), claim.Balance)
	assert.True(t, claim.LeagueUp)
	assert.Equal(t, game.LeagueSilver, claim.League)
	assert.Equal(t, int64(5_050), f.store.get(1).TotalEarned)
	assert.Equal(t, []string{domain.AuditActionTaskClaim, domain.AuditActionLeagueUp}, f.audit.actions())

	_, err = f.svc.ClaimTask(ctx, 1, 1)
	assert.ErrorIs(t, err, game.ErrAlreadyClaimed)
	assert.Equal(t, int64(5_050), f.store.get(1).Balance)

	views, err = f.svc.Tasks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, game.TaskCompleted, views[0].Status)
	assert.Equal(t, game.TaskAvailable, views[1].Status)

	_, err = f.svc.ClaimTask(ctx, 1, 99)
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestClaimTaskRollsBackWhenCompletionFails(t *testing.T) {
	tasks := newFakeTasks(game.Task{ID: 1, Reward: 100})
	tasks.failErr = game.ErrAlreadyClaimed
	f := newFixture(t, newPlayer(1))
	f.svc.tasks = tasks

	_, err := f.svc.ClaimTask(context.Background(), 1, 1)
	assert.ErrorIs(t, err, game.ErrAlreadyClaimed)
	assert.Zero(t, f.store.get(1).Balance)
	assert.Zero(t, f.store.saves)
	assert.Empty(t, f.audit.actions())
}

func TestApplyReferral(t *testing.T) {
	inviter := newPlayer(1)
	inviter.League = game.LeagueGold
	inviter.TotalEarned = 30_000
	refs := &fakeReferrals{codes: map[string]int64{"abc123": 1}}
	f := newFixture(t, inviter, newPlayer(2), newPlayer(3))
	f.svc.referrals = refs
	ctx := context.Background()

	require.NoError(t, f.svc.ApplyReferral(ctx, 2, "abc123"))

	assert.Equal(t, int64(500), f.store.get(2).Balance)
	assert.Equal(t, int64(500), f.store.get(2).TotalEarned)
	assert.Equal(t, int64(1_100), f.store.get(1).Balance, "gold inviters get a 10% bonus")
	assert.Equal(t, int64(31_100), f.store.get(1).TotalEarned)
	require.Len(t, refs.refs, 1)
	assert.Equal(t, repository.Referral{InviterID: 1, InviteeID: 2, InviterReward: 1_100, InviteeReward: 500}, refs.refs[0])
	assert.Contains(t, f.notifier.userEvents(), EventReferral)

	// the same invitee cannot be paid twice
	err := f.svc.ApplyReferral(ctx, 2, "abc123")
	assert.ErrorIs(t, err, repository.ErrAlreadyReferred)
	assert.Equal(t, int64(500), f.store.get(2).Balance)
	assert.Equal(t, int64(1_100), f.store.get(1).Balance)

	assert.ErrorIs(t, f.svc.ApplyReferral(ctx, 1, "abc123"), game.ErrInvalidInput)
	assert.ErrorIs(t, f.svc.ApplyReferral(ctx, 3, "nope"), game.ErrNotFound)
	assert.Zero(t, f.store.get(3).Balance)

	sum, err := f.svc.Referrals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "abc123", sum.ReferralCode)
	assert.Equal(t, 1, sum.TotalReferrals)
	assert.Equal(t, int64(1_100), sum.TotalRewards)

	sum, err = f.svc.Referrals(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "code3", sum.ReferralCode)
	assert.NotNil(t, sum.Referrals)
	assert.Empty(t, sum.Referrals)
}

func TestCreditWith(t *testing.T) {
	f := newFixture(t, newPlayer(1))
	res, err := f.svc.creditWith(context.Background(), 1, 250, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(250), res.State.Balance)
	assert.Equal(t, int64(250), f.store.get(1).Balance)
}

package game

// CreditResult is the outcome of a direct payout or an operator adjustment.
type CreditResult struct {
	Amount        int64
	OldBalance    int64
	State         PlayerState
	LeagueChanged bool
}

// Credit pays amount into balance and lifetime earnings. It is the single
// entry point for rewards that do not come from taps.
func (e *Engine) Credit(p PlayerState, amount int64) (CreditResult, error) {
	res := CreditResult{Amount: amount, OldBalance: p.Balance, State: p}
	if amount < 1 {
		return res, ErrInvalidInput
	}
	next := p.Clone()
	res.LeagueChanged = credit(&next, e.src.Current(), amount)
	res.State = next
	return res, nil
}

// AdjustBalance applies an operator correction. A positive delta counts as
// earnings and can promote the league; a negative one only debits the
// balance, which may not go below zero.
func (e *Engine) AdjustBalance(p PlayerState, delta int64) (CreditResult, error) {
	if delta >= 0 {
		return e.Credit(p, delta)
	}
	res := CreditResult{Amount: delta, OldBalance: p.Balance, State: p}
	if p.Balance+delta < 0 {
		return res, &BalanceError{Price: -delta, Balance: p.Balance}
	}
	next := p.Clone()
	next.Balance += delta
	res.State = next
	return res, nil
}

// ReferralRewards returns what the inviter and the invitee receive when the
// inviter is in league l.
func (s Settings) ReferralRewards(l League) (inviter, invitee int64) {
	inviter = s.ReferralInviterReward * (100 + s.ReferralBonusPct[l]) / 100
	return inviter, s.ReferralInviteeReward
}

package game

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientEnergy  = errors.New("insufficient energy")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRateLimited         = errors.New("too many taps, slow down")
	ErrRestricted          = errors.New("account restricted")
	ErrLeagueLocked        = errors.New("league requirement not met")
	ErrAtMaxLevel          = errors.New("upgrade already at max level")
	ErrOnCooldown          = errors.New("on cooldown")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyClaimed      = errors.New("already claimed")
)

// EnergyError is returned when a tap batch needs more energy than is left.
type EnergyError struct {
	Current  int64
	Required int64
}

func (e *EnergyError) Error() string {
	return fmt.Sprintf("insufficient energy: have %d, need %d", e.Current, e.Required)
}

func (e *EnergyError) Unwrap() error { return ErrInsufficientEnergy }

// BalanceError is returned when a purchase costs more than the balance.
type BalanceError struct {
	Price   int64
	Balance int64
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: price %d, balance %d", e.Price, e.Balance)
}

func (e *BalanceError) Unwrap() error { return ErrInsufficientBalance }

// CooldownError carries when the action becomes available again.
type CooldownError struct {
	Action        string
	NextAvailable time.Time
	Remaining     time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.Action, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrOnCooldown }

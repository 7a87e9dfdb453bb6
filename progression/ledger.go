// progression/ledger.go
package progression

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// LedgerSnapshot is what a ProfileSaver is asked to persist after a gain.
type LedgerSnapshot struct {
	UserID       string
	Amount       int64
	Reason       string
	TotalXP      int64
	PreviousRank Rank
	NewRank      Rank
	RankChanged  bool
}

// ProfileSaver persists the ledger's new total. A returned error rolls the
// in-memory gain back.
type ProfileSaver interface {
	SaveLedger(ctx context.Context, snap LedgerSnapshot) error
}

// ProfileSaverFunc adapts a function to ProfileSaver.
type ProfileSaverFunc func(ctx context.Context, snap LedgerSnapshot) error

func (f ProfileSaverFunc) SaveLedger(ctx context.Context, snap LedgerSnapshot) error {
	return f(ctx, snap)
}

// XPGain reports the outcome of Ledger.GainXP.
type XPGain struct {
	Amount          int64 `json:"amount"`
	NewCumulativeXP int64 `json:"new_cumulative_xp"`
	RankChanged     bool  `json:"rank_changed"`
	PreviousRank    Rank  `json:"previous_rank"`
	NewRank         Rank  `json:"new_rank"`
}

// Ledger holds one user's cumulative XP. The total only ever grows, and only
// through GainXP. Totals saturate at math.MaxInt64.
type Ledger struct {
	mu      sync.Mutex
	userID  string
	totalXP int64
	table   *RankTable
	saver   ProfileSaver
}

// NewLedger creates a ledger starting at initialXP (0 for a new profile, or an
// imported value).
func NewLedger(userID string, initialXP int64, table *RankTable, saver ProfileSaver) (*Ledger, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if initialXP < 0 {
		return nil, fmt.Errorf("%w: initial XP %d is negative", ErrInvalidArgument, initialXP)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: rank table is required", ErrInvalidArgument)
	}
	return &Ledger{userID: userID, totalXP: initialXP, table: table, saver: saver}, nil
}

func (l *Ledger) TotalXP() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalXP
}

func (l *Ledger) Rank() Rank {
	return l.table.RankFor(l.TotalXP())
}

func (l *Ledger) Progress() Progress {
	return l.table.Progress(l.TotalXP())
}

// GainXP adds amount to the total and persists it. Either the whole amount is
// applied and saved, or the ledger is left exactly as it was.
func (l *Ledger) GainXP(ctx context.Context, amount int64, reason string) (XPGain, error) {
	if amount <= 0 {
		return XPGain{}, fmt.Errorf("%w: XP amount must be positive, got %d", ErrInvalidArgument, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.totalXP
	after := before + amount
	if after < before {
		after = math.MaxInt64
	}

	prevRank := l.table.RankFor(before)
	newRank := l.table.RankFor(after)
	gain := XPGain{
		Amount:          after - before,
		NewCumulativeXP: after,
		RankChanged:     newRank.Index != prevRank.Index,
		PreviousRank:    prevRank,
		NewRank:         newRank,
	}

	l.totalXP = after
	if l.saver != nil {
		err := l.saver.SaveLedger(ctx, LedgerSnapshot{
			UserID:       l.userID,
			Amount:       gain.Amount,
			Reason:       reason,
			TotalXP:      after,
			PreviousRank: prevRank,
			NewRank:      newRank,
			RankChanged:  gain.RankChanged,
		})
		if err != nil {
			l.totalXP = before
			return XPGain{}, fmt.Errorf("%w: saving XP for %s: %w", ErrPersistence, l.userID, err)
		}
	}
	return gain, nil
}

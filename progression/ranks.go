// progression/ranks.go
package progression

import (
	"fmt"
)

// RankName identifies a tier in the rank table.
type RankName string

const (
	RankNovice     RankName = "novice"
	RankExplorer   RankName = "explorer"
	RankAdventurer RankName = "adventurer"
	RankMaster     RankName = "master"
	RankLegend     RankName = "legend"
)

// Rank is a resolved tier. Index is its position in the table (0 = lowest).
type Rank struct {
	Name  RankName `json:"name"`
	MinXP int64    `json:"min_xp"`
	Index int      `json:"index"`
}

// RankDefinition is one configured {name, minXP} tuple.
type RankDefinition struct {
	Name  RankName `yaml:"name" json:"name" validate:"required,max=32"`
	MinXP int64    `yaml:"min_xp" json:"min_xp" validate:"min=0"`
}

// DefaultRankDefinitions are the five shipped tiers.
var DefaultRankDefinitions = []RankDefinition{
	{Name: RankNovice, MinXP: 0},
	{Name: RankExplorer, MinXP: 100},
	{Name: RankAdventurer, MinXP: 250},
	{Name: RankMaster, MinXP: 500},
	{Name: RankLegend, MinXP: 1000},
}

// RankTable is an immutable, strictly increasing list of ranks.
type RankTable struct {
	ranks []Rank
}

// NewRankTable validates defs and builds a table. The first threshold must be 0
// and every following threshold strictly greater than the previous one.
func NewRankTable(defs []RankDefinition) (*RankTable, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrConfigInvariant)
	}
	if defs[0].MinXP != 0 {
		return nil, fmt.Errorf("%w: first rank %q must start at 0 XP, got %d", ErrConfigInvariant, defs[0].Name, defs[0].MinXP)
	}

	seen := make(map[RankName]bool, len(defs))
	ranks := make([]Rank, 0, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: rank #%d has no name", ErrConfigInvariant, i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("%w: duplicate rank %q", ErrConfigInvariant, d.Name)
		}
		seen[d.Name] = true
		if i > 0 && d.MinXP <= defs[i-1].MinXP {
			return nil, fmt.Errorf("%w: rank %q threshold %d is not above %q (%d)",
				ErrConfigInvariant, d.Name, d.MinXP, defs[i-1].Name, defs[i-1].MinXP)
		}
		ranks = append(ranks, Rank{Name: d.Name, MinXP: d.MinXP, Index: i})
	}
	return &RankTable{ranks: ranks}, nil
}

// DefaultRankTable returns the table built from DefaultRankDefinitions.
func DefaultRankTable() *RankTable {
	t, err := NewRankTable(DefaultRankDefinitions)
	if err != nil {
		panic(err)
	}
	return t
}

// Ranks returns a copy of the table in ascending order.
func (t *RankTable) Ranks() []Rank {
	out := make([]Rank, len(t.ranks))
	copy(out, t.ranks)
	return out
}

// Lowest returns the first rank.
func (t *RankTable) Lowest() Rank { return t.ranks[0] }

// Lookup finds a rank by name.
func (t *RankTable) Lookup(name RankName) (Rank, bool) {
	for _, r := range t.ranks {
		if r.Name == name {
			return r, true
		}
	}
	return Rank{}, false
}

// RankFor returns the last rank whose MinXP <= xp. Reaching a threshold exactly
// belongs to the higher rank. Negative xp is treated as 0.
func (t *RankTable) RankFor(xp int64) Rank {
	if xp < 0 {
		xp = 0
	}
	current := t.ranks[0]
	for _, r := range t.ranks[1:] {
		if r.MinXP > xp {
			break
		}
		current = r
	}
	return current
}

// NextRank returns the successor of r, or false if r is the max rank.
func (t *RankTable) NextRank(r Rank) (Rank, bool) {
	next := r.Index + 1
	if r.Index < 0 || next >= len(t.ranks) {
		return Rank{}, false
	}
	return t.ranks[next], true
}

// RequiredXPForNextRank is the width of r's band, or 0 at max rank.
func (t *RankTable) RequiredXPForNextRank(r Rank) int64 {
	next, ok := t.NextRank(r)
	if !ok {
		return 0
	}
	return next.MinXP - r.MinXP
}

package progression

// Progress is the display view of a cumulative XP total.
type Progress struct {
	TotalXP               int64   `json:"total_xp"`
	CurrentRank           Rank    `json:"current_rank"`
	NextRank              *Rank   `json:"next_rank,omitempty"`
	XPIntoCurrentRank     int64   `json:"xp_into_current_rank"`
	XPRequiredForNextRank int64   `json:"xp_required_for_next_rank"`
	FractionComplete      float64 `json:"fraction_complete"`
	IsMaxRank             bool    `json:"is_max_rank"`
}

// Progress derives rank progress from xp. It holds no state; call it on every read.
func (t *RankTable) Progress(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	current := t.RankFor(xp)
	p := Progress{
		TotalXP:               xp,
		CurrentRank:           current,
		XPIntoCurrentRank:     xp - current.MinXP,
		XPRequiredForNextRank: t.RequiredXPForNextRank(current),
	}

	next, ok := t.NextRank(current)
	if !ok {
		p.IsMaxRank = true
		p.FractionComplete = 1.0
		return p
	}
	p.NextRank = &next

	fraction := float64(p.XPIntoCurrentRank) / float64(p.XPRequiredForNextRank)
	if fraction > 1.0 {
		fraction = 1.0
	}
	p.FractionComplete = fraction
	return p
}

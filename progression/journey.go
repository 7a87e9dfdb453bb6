// progression/journey.go
package progression

import (
	"context"
	"fmt"
	"sync"
)

// DefaultXPPerCheckpoint is the reward each checkpoint adds to a journey.
const DefaultXPPerCheckpoint int64 = 10

// JourneyState is the completion state of one traversal.
type JourneyState string

const (
	JourneyNotStarted JourneyState = "not_started"
	JourneyInProgress JourneyState = "in_progress"
	JourneyCompleted  JourneyState = "completed"
)

// Coordinate is opaque to the engine; it is carried for the map layer.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type CheckpointDefinition struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Coordinate  Coordinate `json:"coordinate"`
}

type JourneyDefinition struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Checkpoints []CheckpointDefinition `json:"checkpoints"`
}

// Checkpoint is a definition plus its visited flag.
type Checkpoint struct {
	CheckpointDefinition
	Visited bool `json:"visited"`
}

// Journey is one ordered traversal. It owns its checkpoints; the reward is
// fixed when the journey is constructed.
type Journey struct {
	mu          sync.Mutex
	def         JourneyDefinition
	checkpoints []Checkpoint
	index       map[string]int
	visited     int
	reward      int64
	completed   bool
}

// NewJourney builds a fresh traversal and locks its reward to
// len(checkpoints) * xpPerCheckpoint.
func NewJourney(def JourneyDefinition, xpPerCheckpoint int64) (*Journey, error) {
	if xpPerCheckpoint <= 0 {
		return nil, fmt.Errorf("%w: XP per checkpoint must be positive, got %d", ErrInvalidArgument, xpPerCheckpoint)
	}
	j, err := buildJourney(def)
	if err != nil {
		return nil, err
	}
	j.reward = int64(len(j.checkpoints)) * xpPerCheckpoint
	return j, nil
}

// RestoreJourney rehydrates persisted progress. reward is taken as stored and
// never recomputed. A completed journey stays completed.
func RestoreJourney(def JourneyDefinition, reward int64, visitedIDs []string, completed bool) (*Journey, error) {
	if reward <= 0 {
		return nil, fmt.Errorf("%w: journey %s has non-positive reward %d", ErrInvalidArgument, def.ID, reward)
	}
	j, err := buildJourney(def)
	if err != nil {
		return nil, err
	}
	j.reward = reward
	for _, id := range visitedIDs {
		i, ok := j.index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s in journey %s", ErrUnknownCheckpoint, id, def.ID)
		}
		if !j.checkpoints[i].Visited {
			j.checkpoints[i].Visited = true
			j.visited++
		}
	}
	j.completed = completed
	return j, nil
}

func buildJourney(def JourneyDefinition) (*Journey, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("%w: journey id is required", ErrInvalidArgument)
	}
	if len(def.Checkpoints) == 0 {
		return nil, fmt.Errorf("%w: journey %s has no checkpoints", ErrInvalidArgument, def.ID)
	}
	j := &Journey{
		def:         def,
		checkpoints: make([]Checkpoint, len(def.Checkpoints)),
		index:       make(map[string]int, len(def.Checkpoints)),
	}
	for i, cp := range def.Checkpoints {
		if cp.ID == "" {
			return nil, fmt.Errorf("%w: checkpoint #%d of journey %s has no id", ErrInvalidArgument, i, def.ID)
		}
		if _, dup := j.index[cp.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate checkpoint %s in journey %s", ErrInvalidArgument, cp.ID, def.ID)
		}
		j.index[cp.ID] = i
		j.checkpoints[i] = Checkpoint{CheckpointDefinition: cp}
	}
	// Definitions are copied so later edits by the caller don't leak in.
	j.def.Checkpoints = append([]CheckpointDefinition(nil), def.Checkpoints...)
	return j, nil
}

func (j *Journey) ID() string          { return j.def.ID }
func (j *Journey) Title() string       { return j.def.Title }
func (j *Journey) Description() string { return j.def.Description }
func (j *Journey) Reward() int64       { return j.reward }
func (j *Journey) Total() int          { return len(j.checkpoints) }

func (j *Journey) State() JourneyState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stateLocked()
}

func (j *Journey) stateLocked() JourneyState {
	switch {
	case j.completed:
		return JourneyCompleted
	case j.visited == 0:
		return JourneyNotStarted
	default:
		return JourneyInProgress
	}
}

func (j *Journey) VisitedCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.visited
}

// Fraction is visited/total in [0, 1].
func (j *Journey) Fraction() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return float64(j.visited) / float64(len(j.checkpoints))
}

// NextCheckpoint is the first unvisited checkpoint in traversal order.
func (j *Journey) NextCheckpoint() (Checkpoint, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, cp := range j.checkpoints {
		if !cp.Visited {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

func (j *Journey) Checkpoints() []Checkpoint {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Checkpoint, len(j.checkpoints))
	copy(out, j.checkpoints)
	return out
}

func (j *Journey) RouteCoordinates() []Coordinate {
	out := make([]Coordinate, len(j.def.Checkpoints))
	for i, cp := range j.def.Checkpoints {
		out[i] = cp.Coordinate
	}
	return out
}

// VisitResult reports what a visit changed.
type VisitResult struct {
	CheckpointNewlyVisited bool         `json:"checkpoint_newly_visited"`
	JourneyJustCompleted   bool         `json:"journey_just_completed"`
	State                  JourneyState `json:"state"`
	XPGain                 *XPGain      `json:"xp_gain,omitempty"`
}

// Tracker applies checkpoint visits and pays the journey reward.
type Tracker struct{}

func NewTracker() *Tracker { return &Tracker{} }

// VisitCheckpoint marks checkpointID visited. When that completes the journey
// the reward is paid into ledger exactly once; the Completed state is the
// guard, not the visited count. If the reward cannot be saved the visit is
// undone so the call can be retried.
func (t *Tracker) VisitCheckpoint(ctx context.Context, j *Journey, checkpointID string, ledger *Ledger) (VisitResult, error) {
	if j == nil {
		return VisitResult{}, fmt.Errorf("%w: journey is required", ErrUnknownJourney)
	}
	if ledger == nil {
		return VisitResult{}, fmt.Errorf("%w: ledger is required", ErrInvalidArgument)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	i, ok := j.index[checkpointID]
	if !ok {
		return VisitResult{}, fmt.Errorf("%w: %s in journey %s", ErrUnknownCheckpoint, checkpointID, j.def.ID)
	}
	if j.checkpoints[i].Visited {
		return VisitResult{State: j.stateLocked()}, nil
	}

	j.checkpoints[i].Visited = true
	j.visited++
	res := VisitResult{CheckpointNewlyVisited: true}

	if j.visited == len(j.checkpoints) && !j.completed {
		gain, err := ledger.GainXP(ctx, j.reward, "journey_completed:"+j.def.ID)
		if err != nil {
			j.checkpoints[i].Visited = false
			j.visited--
			return VisitResult{}, err
		}
		j.completed = true
		res.JourneyJustCompleted = true
		res.XPGain = &gain
	}
	res.State = j.stateLocked()
	return res, nil
}

package algo

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/elektrokombinacija/drone-delivery-sim/internal/core"
)

// QParams holds the Q-learning hyperparameters.
type QParams struct {
	Alpha        float64 `yaml:"alpha"`
	Gamma        float64 `yaml:"gamma"`
	EpsilonInit  float64 `yaml:"epsilon_init"`
	EpsilonMin   float64 `yaml:"epsilon_min"`
	EpsilonDecay float64 `yaml:"epsilon_decay"`
	Episodes     int     `yaml:"episodes"`
	MaxSteps     int     `yaml:"max_steps"` // Per-episode step cap
	Seed         int64   `yaml:"seed"`

	// AliasPhases keys the table by cell only, so seeking-pickup and
	// seeking-dropoff share Q values.
	AliasPhases bool `yaml:"alias_phases"`
}

// DefaultQParams returns the tuned hyperparameters.
func DefaultQParams() QParams {
	return QParams{
		Alpha:        0.0500,
		Gamma:        0.709,
		EpsilonInit:  0.823,
		EpsilonMin:   0.016,
		EpsilonDecay: 0.99946,
		Episodes:     2000,
		MaxSteps:     1000,
		Seed:         1,
	}
}

// QState is the learner's view of the world.
type QState struct {
	Cell     core.Cell
	Carrying bool
}

type qKey struct {
	state QState
	dir   core.Direction
}

// EpisodeStats summarises one training episode.
type EpisodeStats struct {
	Episode   int
	Steps     int
	Reward    float64
	Completed bool
	Epsilon   float64 // Exploration rate used during the episode
}

// TabularQLearner learns action values by trial and error over the live
// World. Missing table entries read as 0.
type TabularQLearner struct {
	params  QParams
	q       map[qKey]float64
	epsilon float64
	rng     *rand.Rand
	logger  *slog.Logger

	last    core.Direction
	hasLast bool
}

// NewQLearner creates an untrained learner. A nil logger uses slog.Default().
func NewQLearner(params QParams, logger *slog.Logger) *TabularQLearner {
	if logger == nil {
		logger = slog.Default()
	}
	return &TabularQLearner{
		params:  params,
		q:       make(map[qKey]float64),
		epsilon: params.EpsilonInit,
		rng:     rand.New(rand.NewSource(params.Seed)),
		logger:  logger,
	}
}

func (l *TabularQLearner) Name() string { return "qlearn" }

// Params returns the hyperparameters.
func (l *TabularQLearner) Params() QParams { return l.params }

// Epsilon returns the current exploration rate.
func (l *TabularQLearner) Epsilon() float64 { return l.epsilon }

// TableSize returns the number of stored (state, action) entries.
func (l *TabularQLearner) TableSize() int { return len(l.q) }

// StateOf observes the learner state of w.
func (l *TabularQLearner) StateOf(w *core.World) QState {
	s := QState{Cell: w.Position(), Carrying: w.IsCarrying()}
	if l.params.AliasPhases {
		s.Carrying = false
	}
	return s
}

// Value returns Q(s, d).
func (l *TabularQLearner) Value(s QState, d core.Direction) float64 {
	return l.q[qKey{s, d}]
}

// LegalActions lists the directions that stay in bounds and avoid current
// hazards, in {RIGHT, UP, LEFT, DOWN} order.
func LegalActions(w *core.World, c core.Cell) []core.Direction {
	out := make([]core.Direction, 0, 4)
	for _, d := range core.Directions() {
		n := c.Step(d)
		if w.InBounds(n) && !w.IsHazard(n) {
			out = append(out, d)
		}
	}
	return out
}

// best returns the highest-valued action of actions; the first wins ties.
func (l *TabularQLearner) best(s QState, actions []core.Direction) (core.Direction, float64) {
	bestD, bestV := actions[0], math.Inf(-1)
	for _, d := range actions {
		if v := l.Value(s, d); v > bestV {
			bestD, bestV = d, v
		}
	}
	return bestD, bestV
}

// ChooseAction picks uniformly among actions with probability epsilon,
// otherwise the greedy one. ok is false when actions is empty.
func (l *TabularQLearner) ChooseAction(s QState, actions []core.Direction, epsilon float64) (core.Direction, bool) {
	if len(actions) == 0 {
		return 0, false
	}
	if epsilon > 0 && l.rng.Float64() < epsilon {
		return actions[l.rng.Intn(len(actions))], true
	}
	d, _ := l.best(s, actions)
	return d, true
}

// Update applies one temporal-difference step. next lists the legal actions
// at s'; with none the bootstrap term is 0.
func (l *TabularQLearner) Update(s QState, d core.Direction, r float64, sNext QState, next []core.Direction) {
	future := 0.0
	if len(next) > 0 {
		_, future = l.best(sNext, next)
	}
	k := qKey{s, d}
	old := l.q[k]
	l.q[k] = old + l.params.Alpha*(r+l.params.Gamma*future-old)
}

// Train runs Episodes episodes over w. Each episode starts from Reset and
// ends on completion, a dead end, or MaxSteps. Epsilon decays once per
// episode down to EpsilonMin.
func (l *TabularQLearner) Train(w *core.World, reg *core.TaskRegistry) []EpisodeStats {
	stats := make([]EpisodeStats, 0, l.params.Episodes)
	for ep := 0; ep < l.params.Episodes; ep++ {
		st := l.runEpisode(w)
		st.Episode = ep
		stats = append(stats, st)

		if ep%100 == 0 || ep == l.params.Episodes-1 {
			l.logger.Debug("training episode",
				"planner", l.Name(),
				"episode", ep,
				"steps", st.Steps,
				"reward", st.Reward,
				"completed", st.Completed,
				"epsilon", st.Epsilon,
				"deliveries", reg.FulfilledCount(),
			)
		}
		l.epsilon = math.Max(l.params.EpsilonMin, l.epsilon*l.params.EpsilonDecay)
	}
	w.Reset()
	l.hasLast = false
	return stats
}

func (l *TabularQLearner) runEpisode(w *core.World) EpisodeStats {
	w.Reset()
	st := EpisodeStats{Epsilon: l.epsilon}
	for st.Steps < l.params.MaxSteps && !w.IsComplete() {
		s := l.StateOf(w)
		d, ok := l.ChooseAction(s, LegalActions(w, w.Position()), l.epsilon)
		if !ok {
			break // Dead end
		}
		_, r, err := w.Step(d)
		if err != nil {
			break
		}
		st.Steps++
		st.Reward += r

		sNext := l.StateOf(w)
		var next []core.Direction
		if !w.IsComplete() {
			next = LegalActions(w, w.Position())
		}
		l.Update(s, d, r, sNext, next)
	}
	st.Completed = w.IsComplete()
	return st
}

// NextAction returns the greedy action for the current state. When every
// neighbour is illegal the previous action is repeated; ok is false only if
// there is no previous action either.
func (l *TabularQLearner) NextAction(w *core.World, _ *core.TaskRegistry) (core.Direction, bool) {
	if w.IsComplete() {
		return 0, false
	}
	d, ok := l.ChooseAction(l.StateOf(w), LegalActions(w, w.Position()), 0)
	if !ok {
		return l.last, l.hasLast
	}
	l.last, l.hasLast = d, true
	return d, true
}

// ResetEpisode forgets the previous action.
func (l *TabularQLearner) ResetEpisode() {
	l.hasLast = false
}

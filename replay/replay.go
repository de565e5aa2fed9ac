// Package replay implements the trainer's two ring buffers: Memory, a
// fixed-capacity experience replay buffer, and ModelMemory, a
// fixed-capacity window of recent (model, win_rate) snapshots used to
// detect training convergence and pick the best-performing snapshot.
package replay

import (
	"math"
	"math/rand"

	"smartselect/qnet"
)

// Experience is one (state, action, reward, next state, terminal)
// transition pushed into Memory by the trainer's episode loop.
type Experience struct {
	State     []float64
	Action    int // 1-based plan id, matching env.Environment.TakeAction
	Reward    float64
	NextState []float64
	Terminal  bool // true when NextState has no further action to take
}

// Memory is a fixed-capacity ring buffer of Experiences.
type Memory struct {
	capacity  int
	buf       []Experience
	pushCount int
}

// NewMemory allocates an empty buffer with room for capacity experiences.
func NewMemory(capacity int) *Memory {
	return &Memory{capacity: capacity}
}

// Push appends e, overwriting the oldest entry once at capacity.
func (m *Memory) Push(e Experience) {
	if len(m.buf) < m.capacity {
		m.buf = append(m.buf, e)
	} else {
		m.buf[m.pushCount%m.capacity] = e
	}
	m.pushCount++
}

// Len returns the number of experiences currently held.
func (m *Memory) Len() int { return len(m.buf) }

// CanProvideSample reports whether at least batchSize experiences are
// available to sample.
func (m *Memory) CanProvideSample(batchSize int) bool {
	return len(m.buf) >= batchSize
}

// Sample draws batchSize experiences uniformly at random, without
// replacement, using rng.
func (m *Memory) Sample(batchSize int, rng *rand.Rand) []Experience {
	if batchSize > len(m.buf) {
		batchSize = len(m.buf)
	}
	idx := rng.Perm(len(m.buf))[:batchSize]
	out := make([]Experience, batchSize)
	for i, j := range idx {
		out[i] = m.buf[j]
	}
	return out
}

// ModelMemory is a fixed-capacity window of recent training-run
// snapshots, used to detect convergence and recall the best one.
type ModelMemory struct {
	capacity  int
	models    []*qnet.Network
	winRates  []float64
	pushCount int
}

// NewModelMemory allocates a window holding at most capacity snapshots.
func NewModelMemory(capacity int) *ModelMemory {
	return &ModelMemory{capacity: capacity}
}

// Push records a deep copy of model alongside the win rate it achieved.
func (m *ModelMemory) Push(model *qnet.Network, winRate float64) {
	clone := model.Clone()
	if len(m.models) < m.capacity {
		m.models = append(m.models, clone)
		m.winRates = append(m.winRates, winRate)
	} else {
		idx := m.pushCount % m.capacity
		m.models[idx] = clone
		m.winRates[idx] = winRate
	}
	m.pushCount++
}

// Converged reports whether the window is full and the spread between
// its best and worst win rate, relative to the best, is under
// threshold.
func (m *ModelMemory) Converged(threshold float64) bool {
	if len(m.models) < m.capacity {
		return false
	}
	maxRate, minRate := m.winRates[0], m.winRates[0]
	for _, r := range m.winRates[1:] {
		if r > maxRate {
			maxRate = r
		}
		if r < minRate {
			minRate = r
		}
	}
	denom := maxRate
	if denom == 0.0 {
		denom = 1.0
	}
	delta := (maxRate - minRate) / math.Abs(denom)
	return delta < threshold
}

// BestModel returns the snapshot with the highest recorded win rate, or
// nil if Push has never been called (e.g. a run canceled before its
// first completed iteration).
func (m *ModelMemory) BestModel() *qnet.Network {
	if len(m.models) == 0 {
		return nil
	}
	best := 0
	for i, r := range m.winRates {
		if r > m.winRates[best] {
			best = i
		}
	}
	return m.models[best]
}

// MaxWinRate returns the highest win rate recorded in the window, or 0
// if Push has never been called.
func (m *ModelMemory) MaxWinRate() float64 {
	if len(m.winRates) == 0 {
		return 0
	}
	max := m.winRates[0]
	for _, r := range m.winRates[1:] {
		if r > max {
			max = r
		}
	}
	return max
}

package routing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// DefaultEpsilon is the minimum gain (meters) for a 2-opt move to count as an
// improvement. It keeps floating-point near-ties from cycling.
const DefaultEpsilon = 1e-9

// Sequencer orders stops into an open tour starting at a fixed origin.
// It builds a nearest-neighbor tour and improves it with 2-opt.
// A Sequencer is immutable and may be shared between goroutines.
type Sequencer struct {
	model      CostModel
	maxPasses  int
	timeBudget time.Duration
	eps        float64
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithCostModel replaces the distance/duration model.
func WithCostModel(m CostModel) Option {
	return func(s *Sequencer) {
		if m != nil {
			s.model = m
		}
	}
}

// WithMaxPasses caps the number of full 2-opt passes. Zero or negative means
// the default cap of n² passes for n stops.
func WithMaxPasses(n int) Option {
	return func(s *Sequencer) { s.maxPasses = n }
}

// WithTimeBudget bounds wall-clock time spent in 2-opt. Zero disables it.
func WithTimeBudget(d time.Duration) Option {
	return func(s *Sequencer) { s.timeBudget = d }
}

// WithEpsilon sets the minimum accepted gain per 2-opt move.
func WithEpsilon(eps float64) Option {
	return func(s *Sequencer) {
		if eps >= 0 {
			s.eps = eps
		}
	}
}

// NewSequencer creates a Sequencer with the default cost model and budget.
func NewSequencer(opts ...Option) *Sequencer {
	s := &Sequencer{model: DefaultCostModel, eps: DefaultEpsilon}
	for _, o := range opts {
		o(s)
	}
	return s
}

var defaultSequencer = NewSequencer()

// OptimizeRoute orders stops into a short route from origin with the default
// Sequencer and returns its legs.
func OptimizeRoute(origin domain.GeoPoint, stops []domain.Address) ([]domain.RouteLeg, error) {
	route, err := defaultSequencer.Sequence(context.Background(), origin, stops)
	if err != nil {
		return nil, err
	}
	return route.Legs, nil
}

// Sequence computes a visiting order covering every stop exactly once.
//
// Inputs are validated before any work is done. When the pass cap, the time
// budget or ctx stops the improvement phase early, the best tour found so far
// is returned with BudgetExhausted set; that is not an error.
func (s *Sequencer) Sequence(ctx context.Context, origin domain.GeoPoint, stops []domain.Address) (*domain.Route, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if err := validateAddresses(stops); err != nil {
		return nil, err
	}

	route := &domain.Route{Origin: origin, Legs: []domain.RouteLeg{}}
	if len(stops) == 0 {
		return route, nil
	}

	w := newMatrix(s.model, origin, stops)
	tour := w.nearestNeighbor()
	route.InitialDistance = w.pathLength(tour)

	passes, improvements, exhausted := s.improve(ctx, w, tour)
	route.Passes = passes
	route.Improvements = improvements
	route.BudgetExhausted = exhausted

	route.Legs = make([]domain.RouteLeg, 0, len(stops))
	for k := 1; k < len(tour); k++ {
		d := w.at(tour[k-1], tour[k])
		dur := s.model.Duration(d)
		route.Legs = append(route.Legs, domain.RouteLeg{
			Address:  stops[tour[k]-1],
			Distance: d,
			Duration: dur,
			Order:    k - 1,
		})
		route.TotalDistance += d
		route.TotalDuration += dur
	}
	return route, nil
}

// improve runs first-improvement 2-opt on the open path in place.
// tour[0] is the origin and never moves.
func (s *Sequencer) improve(ctx context.Context, w *matrix, tour []int) (passes, improvements int, exhausted bool) {
	n := len(tour) - 1
	maxPasses := s.maxPasses
	if maxPasses <= 0 {
		maxPasses = max(1, n*n)
	}

	var deadline time.Time
	if s.timeBudget > 0 {
		deadline = time.Now().Add(s.timeBudget)
	}
	stop := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return !deadline.IsZero() && time.Now().After(deadline)
	}

	last := len(tour) - 1
	for passes < maxPasses {
		if stop() {
			return passes, improvements, true
		}
		passes++

		improved := false
		for i := 0; i < last-1; i++ {
			if i > 0 && stop() {
				return passes, improvements, true
			}
			a := tour[i]
			for j := i + 2; j <= last; j++ {
				b, c := tour[i+1], tour[j]

				var delta float64
				if j == last {
					// Open tail: only edge (a,b) is replaced, by (a,c).
					delta = w.at(a, c) - w.at(a, b)
				} else {
					d := tour[j+1]
					delta = w.at(a, c) + w.at(b, d) - w.at(a, b) - w.at(c, d)
				}

				if delta < -s.eps {
					reverse(tour, i+1, j)
					improvements++
					improved = true
				}
			}
		}

		if !improved {
			return passes, improvements, false
		}
	}
	// Still improving when the cap was reached.
	return passes, improvements, true
}

func reverse(tour []int, i, j int) {
	for ; i < j; i, j = i+1, j-1 {
		tour[i], tour[j] = tour[j], tour[i]
	}
}

// matrix is a dense symmetric distance table; node 0 is the origin and
// node k is stops[k-1].
type matrix struct {
	n int
	w []float64
}

func newMatrix(model CostModel, origin domain.GeoPoint, stops []domain.Address) *matrix {
	n := len(stops) + 1
	pts := make([]domain.GeoPoint, n)
	pts[0] = origin
	for i, s := range stops {
		pts[i+1] = s.Point()
	}

	m := &matrix{n: n, w: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := model.Distance(pts[i], pts[j])
			m.w[i*n+j] = d
			m.w[j*n+i] = d
		}
	}
	return m
}

func (m *matrix) at(u, v int) float64 { return m.w[u*m.n+v] }

// nearestNeighbor builds a greedy tour from node 0. Ties go to the lowest
// node index, which is the input stop order.
func (m *matrix) nearestNeighbor() []int {
	visited := make([]bool, m.n)
	tour := make([]int, 1, m.n)
	visited[0] = true

	cur := 0
	for len(tour) < m.n {
		best, bestD := -1, math.Inf(1)
		for v := 1; v < m.n; v++ {
			if visited[v] {
				continue
			}
			if d := m.at(cur, v); best == -1 || d < bestD {
				best, bestD = v, d
			}
		}
		visited[best] = true
		tour = append(tour, best)
		cur = best
	}
	return tour
}

func (m *matrix) pathLength(tour []int) float64 {
	var total float64
	for k := 1; k < len(tour); k++ {
		total += m.at(tour[k-1], tour[k])
	}
	return total
}

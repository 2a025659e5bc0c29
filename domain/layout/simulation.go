package layout

import (
	"math"
	"math/rand"

	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	pkgerrors "constellations/pkg/errors"
)

const (
	initialRadius = 10.0
	// golden angle
	initialAngle = math.Pi * (3 - 2.23606797749979)
)

// Edge is a link whose endpoints have been resolved against the node set.
type Edge struct {
	Link   *entities.Link
	Source *entities.Node
	Target *entities.Node
}

// Force nudges node velocities each tick.
type Force interface {
	Initialize(nodes []*entities.Node, edges []Edge, rnd *rand.Rand)
	Apply(alpha float64)
}

// Constraint corrects positions after integration.
type Constraint interface {
	Initialize(nodes []*entities.Node, edges []Edge, rnd *rand.Rand)
	Resolve()
}

// NamedForce pairs a force with the key it is registered under.
type NamedForce struct {
	Name  string
	Force Force
}

// SimulationParams configures the clock.
type SimulationParams struct {
	AlphaMin        float64
	AlphaDecayTicks int
	VelocityDecay   float64
}

// Simulation is the single writer of live positions in free-form mode. It is
// not safe for concurrent use.
type Simulation struct {
	nodes []*entities.Node
	edges []Edge

	forces      []NamedForce
	constraints []Constraint

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64
	center        valueobjects.Position
	running       bool

	rnd *rand.Rand
}

// NewSimulation creates a stopped clock with full energy.
func NewSimulation(params SimulationParams, rnd *rand.Rand) *Simulation {
	s := &Simulation{
		alpha: 1,
		rnd:   rnd,
	}
	s.Configure(params)
	return s
}

// Configure updates the energy schedule without touching the current alpha.
func (s *Simulation) Configure(params SimulationParams) {
	ticks := params.AlphaDecayTicks
	if ticks <= 0 {
		ticks = 300
	}
	s.alphaMin = params.AlphaMin
	s.alphaDecay = 1 - math.Pow(params.AlphaMin, 1/float64(ticks))
	s.velocityDecay = 1 - params.VelocityDecay
}

// Nodes returns the node set the simulation is running on.
func (s *Simulation) Nodes() []*entities.Node {
	return s.nodes
}

// Edges returns the resolved links.
func (s *Simulation) Edges() []Edge {
	return s.edges
}

// SetCenter sets the point unplaced nodes are seeded around.
func (s *Simulation) SetCenter(c valueobjects.Position) {
	s.center = c
}

// SetGraph swaps the node and link set. New nodes stay unplaced until the
// next tick. A panic inside force initialization is recovered and the
// previous set is restored.
func (s *Simulation) SetGraph(nodes []*entities.Node, edges []Edge) (err error) {
	prevNodes, prevEdges := s.nodes, s.edges
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.NewSolverError("graph update", r)
			s.nodes, s.edges = prevNodes, prevEdges
			s.reinitializeSafely()
		}
	}()

	s.nodes, s.edges = nodes, edges
	s.initializeAll()
	return nil
}

// Apply installs a strategy plan: the force list replaces the current one and
// the pins are written with layout ownership.
func (s *Simulation) Apply(plan Plan) (err error) {
	prevForces, prevConstraints := s.forces, s.constraints
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.NewSolverError("force update", r)
			s.forces, s.constraints = prevForces, prevConstraints
			s.reinitializeSafely()
		}
	}()

	s.forces = plan.Forces
	s.constraints = plan.Constraints
	s.initializeAll()

	if plan.Pins != nil {
		for _, n := range s.nodes {
			if pos, ok := plan.Pins[n.ID]; ok {
				n.SetPin(pos, entities.PinLayout)
				n.ApplyPin()
			}
		}
	}
	return nil
}

// Reinitialize recomputes per-node force state, for example after radii
// changed.
func (s *Simulation) Reinitialize() error {
	return s.SetGraph(s.nodes, s.edges)
}

func (s *Simulation) initializeAll() {
	for _, f := range s.forces {
		f.Force.Initialize(s.nodes, s.edges, s.rnd)
	}
	for _, c := range s.constraints {
		c.Initialize(s.nodes, s.edges, s.rnd)
	}
}

func (s *Simulation) reinitializeSafely() {
	defer func() { _ = recover() }()
	s.initializeAll()
}

// placeNewNodes seeds unplaced nodes next to a placed neighbour, or on a
// phyllotaxis spiral around the center when they have none.
func (s *Simulation) placeNewNodes() {
	unplaced := false
	for _, n := range s.nodes {
		if !n.IsPlaced() {
			unplaced = true
			break
		}
	}
	if !unplaced {
		return
	}

	neighbour := make(map[valueobjects.NodeID]*entities.Node)
	for _, e := range s.edges {
		if e.Source.IsPlaced() {
			neighbour[e.Target.ID] = e.Source
		}
		if e.Target.IsPlaced() {
			neighbour[e.Source.ID] = e.Target
		}
	}

	for i, n := range s.nodes {
		if pin, ok := n.Pin(); ok {
			n.X, n.Y = pin.X, pin.Y
			continue
		}
		if n.IsPlaced() {
			continue
		}
		n.VX, n.VY = 0, 0
		if anchor, ok := neighbour[n.ID]; ok && anchor.IsPlaced() {
			angle := s.rnd.Float64() * 2 * math.Pi
			n.X = anchor.X + initialRadius*3*math.Cos(angle)
			n.Y = anchor.Y + initialRadius*3*math.Sin(angle)
			continue
		}
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		n.X = s.center.X + radius*math.Cos(angle)
		n.Y = s.center.Y + radius*math.Sin(angle)
	}
}

// Tick advances the clock by one step. It reports whether anything moved.
func (s *Simulation) Tick() bool {
	s.placeNewNodes()
	if !s.running {
		return false
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay

	for _, f := range s.forces {
		f.Force.Apply(s.alpha)
	}

	for _, n := range s.nodes {
		if n.HasPin() {
			n.ApplyPin()
			continue
		}
		n.VX *= s.velocityDecay
		n.VY *= s.velocityDecay
		n.X += n.VX
		n.Y += n.VY
	}

	for _, c := range s.constraints {
		c.Resolve()
	}

	if s.alpha < s.alphaMin {
		s.running = false
	}
	return true
}

// Alpha returns the current energy.
func (s *Simulation) Alpha() float64 {
	return s.alpha
}

// SetAlpha resets the energy. Only mode switches and snapshot replacement
// should call this.
func (s *Simulation) SetAlpha(alpha float64) {
	s.alpha = clamp01(alpha)
}

// Reheat raises the energy to at least alpha and restarts the clock.
func (s *Simulation) Reheat(alpha float64) {
	if alpha > s.alpha {
		s.alpha = clamp01(alpha)
	}
	s.Restart()
}

// SetAlphaTarget sets the energy the clock decays toward.
func (s *Simulation) SetAlphaTarget(target float64) {
	s.alphaTarget = clamp01(target)
}

// AlphaTarget returns the energy floor.
func (s *Simulation) AlphaTarget() float64 {
	return s.alphaTarget
}

// Restart resumes ticking.
func (s *Simulation) Restart() {
	s.running = true
}

// Stop halts ticking until the next restart.
func (s *Simulation) Stop() {
	s.running = false
}

// Running reports whether the clock is active.
func (s *Simulation) Running() bool {
	return s.running
}

// ZeroVelocities stops every node.
func (s *Simulation) ZeroVelocities() {
	for _, n := range s.nodes {
		n.VX, n.VY = 0, 0
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func jiggle(rnd *rand.Rand) float64 {
	return (rnd.Float64() - 0.5) * 1e-6
}

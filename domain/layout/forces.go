package layout

import (
	"math"
	"math/rand"

	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
)

// LinkForce pulls linked nodes toward Distance. Strength is
// 1/min(degree) per link and the correction is split by degree so hubs move
// less than leaves.
type LinkForce struct {
	Distance   float64
	Iterations int

	edges     []Edge
	strengths []float64
	bias      []float64
	rnd       *rand.Rand
}

// NewLinkForce creates a link force with one iteration per tick.
func NewLinkForce(distance float64) *LinkForce {
	return &LinkForce{Distance: distance, Iterations: 1}
}

func (f *LinkForce) Initialize(_ []*entities.Node, edges []Edge, rnd *rand.Rand) {
	count := make(map[valueobjects.NodeID]int, len(edges)*2)
	for _, e := range edges {
		count[e.Source.ID]++
		count[e.Target.ID]++
	}

	strengths := make([]float64, len(edges))
	bias := make([]float64, len(edges))
	for i, e := range edges {
		cs, ct := count[e.Source.ID], count[e.Target.ID]
		strengths[i] = 1 / float64(min(cs, ct))
		bias[i] = float64(cs) / float64(cs+ct)
	}

	f.edges, f.strengths, f.bias, f.rnd = edges, strengths, bias, rnd
}

func (f *LinkForce) Apply(alpha float64) {
	iterations := max(f.Iterations, 1)
	for k := 0; k < iterations; k++ {
		for i, e := range f.edges {
			s, t := e.Source, e.Target
			x := t.X + t.VX - s.X - s.VX
			y := t.Y + t.VY - s.Y - s.VY
			if x == 0 {
				x = jiggle(f.rnd)
			}
			if y == 0 {
				y = jiggle(f.rnd)
			}
			l := math.Sqrt(x*x + y*y)
			l = (l - f.Distance) / l * alpha * f.strengths[i]
			x *= l
			y *= l

			b := f.bias[i]
			t.VX -= x * b
			t.VY -= y * b
			s.VX += x * (1 - b)
			s.VY += y * (1 - b)
		}
	}
}

// ManyBodyForce is pairwise charge between every pair of nodes. Negative
// strength repels. The sum is exact; diagrams stay in the hundreds of nodes.
type ManyBodyForce struct {
	Strength    float64
	DistanceMin float64
	DistanceMax float64

	nodes []*entities.Node
	rnd   *rand.Rand
}

// NewManyBodyForce creates a charge force.
func NewManyBodyForce(strength, distanceMax float64) *ManyBodyForce {
	return &ManyBodyForce{Strength: strength, DistanceMin: 1, DistanceMax: distanceMax}
}

func (f *ManyBodyForce) Initialize(nodes []*entities.Node, _ []Edge, rnd *rand.Rand) {
	f.nodes, f.rnd = nodes, rnd
}

func (f *ManyBodyForce) Apply(alpha float64) {
	min2 := f.DistanceMin * f.DistanceMin
	max2 := math.Inf(1)
	if f.DistanceMax > 0 {
		max2 = f.DistanceMax * f.DistanceMax
	}

	for i, n := range f.nodes {
		for j, m := range f.nodes {
			if i == j {
				continue
			}
			x := m.X - n.X
			y := m.Y - n.Y
			l := x*x + y*y
			if l >= max2 {
				continue
			}
			if x == 0 {
				x = jiggle(f.rnd)
				l += x * x
			}
			if y == 0 {
				y = jiggle(f.rnd)
				l += y * y
			}
			if l < min2 {
				l = math.Sqrt(min2 * l)
			}
			w := f.Strength * alpha / l
			n.VX += x * w
			n.VY += y * w
		}
	}
}

// CenterForce translates the whole system so its mean sits at X, Y.
type CenterForce struct {
	X, Y     float64
	Strength float64

	nodes []*entities.Node
}

// NewCenterForce creates a centering force.
func NewCenterForce(c valueobjects.Position, strength float64) *CenterForce {
	return &CenterForce{X: c.X, Y: c.Y, Strength: strength}
}

func (f *CenterForce) Initialize(nodes []*entities.Node, _ []Edge, _ *rand.Rand) {
	f.nodes = nodes
}

func (f *CenterForce) Apply(float64) {
	if len(f.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range f.nodes {
		sx += n.X
		sy += n.Y
	}
	n := float64(len(f.nodes))
	sx = (sx/n - f.X) * f.Strength
	sy = (sy/n - f.Y) * f.Strength
	for _, node := range f.nodes {
		node.X -= sx
		node.Y -= sy
	}
}

// RadiusFunc returns the collision radius of a node.
type RadiusFunc func(n *entities.Node) float64

// CollideConstraint pushes overlapping nodes apart after integration. Each
// pass projects every overlapping pair to touching distance, the smaller node
// taking the larger share. Pinned nodes never move.
type CollideConstraint struct {
	Radius     RadiusFunc
	Strength   float64
	Iterations int

	nodes []*entities.Node
	radii []float64
	rnd   *rand.Rand
}

// NewCollideConstraint creates a collision pass.
func NewCollideConstraint(radius RadiusFunc, strength float64, iterations int) *CollideConstraint {
	return &CollideConstraint{Radius: radius, Strength: strength, Iterations: iterations}
}

func (c *CollideConstraint) Initialize(nodes []*entities.Node, _ []Edge, rnd *rand.Rand) {
	radii := make([]float64, len(nodes))
	for i, n := range nodes {
		radii[i] = c.Radius(n)
	}
	c.nodes, c.radii, c.rnd = nodes, radii, rnd
}

func (c *CollideConstraint) Resolve() {
	for k := 0; k < max(c.Iterations, 1); k++ {
		for i := 0; i < len(c.nodes); i++ {
			a, ra := c.nodes[i], c.radii[i]
			for j := i + 1; j < len(c.nodes); j++ {
				b, rb := c.nodes[j], c.radii[j]
				c.separate(a, b, ra, rb)
			}
		}
	}
}

func (c *CollideConstraint) separate(a, b *entities.Node, ra, rb float64) {
	aFixed, bFixed := a.HasPin(), b.HasPin()
	if aFixed && bFixed {
		return
	}
	r := ra + rb
	x := a.X - b.X
	y := a.Y - b.Y
	l2 := x*x + y*y
	if l2 >= r*r {
		return
	}
	if x == 0 {
		x = jiggle(c.rnd)
		l2 += x * x
	}
	if y == 0 {
		y = jiggle(c.rnd)
		l2 += y * y
	}
	l := math.Sqrt(l2)
	push := (r - l) / l * c.Strength
	x *= push
	y *= push

	ra2, rb2 := ra*ra, rb*rb
	share := rb2 / (ra2 + rb2)
	switch {
	case aFixed:
		share = 0
	case bFixed:
		share = 1
	}
	a.X += x * share
	a.Y += y * share
	b.X -= x * (1 - share)
	b.Y -= y * (1 - share)
}

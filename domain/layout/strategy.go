package layout

import (
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
)

// Plan is what a strategy hands to the simulation: the force list to run and,
// for deterministic layouts, the pins to write.
type Plan struct {
	Forces      []NamedForce
	Constraints []Constraint
	Pins        map[valueobjects.NodeID]valueobjects.Position
}

// Strategy is one of the two layout philosophies. Implementations are
// FreeForm and Chronological.
type Strategy interface {
	Mode() valueobjects.LayoutMode
	ComputeTargets(nodes []*entities.Node, edges []Edge) Plan
}

// FreeFormParams tunes the force relaxation.
type FreeFormParams struct {
	Center              valueobjects.Position
	LinkDistance        float64
	ChargeStrength      float64
	ChargeDistanceMax   float64
	CenterStrength      float64
	CollisionStrength   float64
	CollisionIterations int
	Radius              RadiusFunc
}

// FreeForm positions are simulation outputs; it returns forces and no pins.
type FreeForm struct {
	Params FreeFormParams
}

func (FreeForm) Mode() valueobjects.LayoutMode {
	return valueobjects.ModeFreeForm
}

func (s FreeForm) ComputeTargets(_ []*entities.Node, _ []Edge) Plan {
	p := s.Params
	return Plan{
		Forces: []NamedForce{
			{Name: "link", Force: NewLinkForce(p.LinkDistance)},
			{Name: "charge", Force: NewManyBodyForce(p.ChargeStrength, p.ChargeDistanceMax)},
			{Name: "center", Force: NewCenterForce(p.Center, p.CenterStrength)},
		},
		Constraints: []Constraint{
			NewCollideConstraint(p.Radius, p.CollisionStrength, p.CollisionIterations),
		},
	}
}

// Chronological pins every node to a deterministic target. Only a weak
// residual charge stays on so coincident nodes separate before the pins land.
type Chronological struct {
	Axis           ChronoAxis
	Rows           ChronoRows
	ResidualCharge float64
}

func (Chronological) Mode() valueobjects.LayoutMode {
	return valueobjects.ModeChronological
}

func (s Chronological) ComputeTargets(nodes []*entities.Node, edges []Edge) Plan {
	placement := ComputeChronological(nodes, edges, s.Axis, s.Rows)
	return Plan{
		Forces: []NamedForce{
			{Name: "charge", Force: NewManyBodyForce(s.ResidualCharge, 0)},
		},
		Pins: placement.Targets,
	}
}

// ResidualPlan is the chronological force list without pins. It runs between
// a mode switch and the first pin assignment.
func (s Chronological) ResidualPlan() Plan {
	return Plan{
		Forces: []NamedForce{
			{Name: "charge", Force: NewManyBodyForce(s.ResidualCharge, 0)},
		},
	}
}

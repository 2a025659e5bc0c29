package layout

import (
	"math"
	"sort"

	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
)

// ChronoAxis places the time axis.
type ChronoAxis struct {
	CenterX     float64
	Y           float64
	ItemSpacing float64
	// CardHeight is the tallest timed card; the zig-zag clears it.
	CardHeight float64
	CardWidth  float64
	Gap        float64
}

// ChronoRows packs the untimed nodes above the axis.
type ChronoRows struct {
	PersonRadius  float64
	Margin        float64
	RowGap        float64
	Capacity      int
	ViewportWidth float64
	Padding       float64
}

// ZigOffset is the distance of a timed card from the axis.
func (a ChronoAxis) ZigOffset() float64 {
	return a.CardHeight/2 + a.Gap
}

// ChronoPlacement is the result of a chronological pass.
type ChronoPlacement struct {
	Targets map[valueobjects.NodeID]valueobjects.Position
	// Timed holds the timed nodes in axis order.
	Timed []*entities.Node
	// Pitch is the column pitch used for each untimed row; it can fall
	// below MinPitch when a full row does not fit.
	Pitch    []float64
	MinPitch float64
}

// ComputeChronological is deterministic: the same nodes and links always
// produce the same targets.
func ComputeChronological(nodes []*entities.Node, edges []Edge, axis ChronoAxis, rows ChronoRows) ChronoPlacement {
	var timed, untimed []*entities.Node
	for _, n := range nodes {
		if n.HasYear() {
			timed = append(timed, n)
		} else {
			untimed = append(untimed, n)
		}
	}

	sort.SliceStable(timed, func(i, j int) bool {
		yi, yj := *timed[i].Year, *timed[j].Year
		if yi != yj {
			return yi < yj
		}
		return timed[i].ID < timed[j].ID
	})

	targets := make(map[valueobjects.NodeID]valueobjects.Position, len(nodes))
	startOffset := -float64(len(timed)-1) * axis.ItemSpacing / 2
	zig := axis.ZigOffset()
	for i, n := range timed {
		y := axis.Y - zig
		if i%2 == 1 {
			y = axis.Y + zig
		}
		targets[n.ID] = valueobjects.Position{
			X: axis.CenterX + startOffset + float64(i)*axis.ItemSpacing,
			Y: y,
		}
	}

	placement := ChronoPlacement{
		Targets:  targets,
		Timed:    timed,
		MinPitch: 2*rows.PersonRadius + rows.Margin,
	}
	if len(untimed) == 0 {
		return placement
	}

	desired := desiredColumns(untimed, edges, targets, axis.CenterX)
	sort.SliceStable(untimed, func(i, j int) bool {
		di, dj := desired[untimed[i].ID], desired[untimed[j].ID]
		if di != dj {
			return di < dj
		}
		return untimed[i].ID < untimed[j].ID
	})

	width := availableWidth(len(timed), axis, rows)
	capacity := max(rows.Capacity, 1)
	rowPitch := 2*rows.PersonRadius + rows.Margin
	baseY := axis.Y - zig - axis.CardHeight/2 - rows.RowGap - rows.PersonRadius
	if len(timed) == 0 {
		baseY = axis.Y
	}

	for r := 0; r*capacity < len(untimed); r++ {
		end := min((r+1)*capacity, len(untimed))
		row := untimed[r*capacity : end]
		xs, pitch := packRow(row, desired, placement.MinPitch, width, axis.CenterX)
		placement.Pitch = append(placement.Pitch, pitch)
		y := baseY - float64(r)*rowPitch
		for k, n := range row {
			targets[n.ID] = valueobjects.Position{X: xs[k], Y: y}
		}
	}
	return placement
}

// desiredColumns is the mean x of each node's linked timed nodes, falling
// back to the axis center.
func desiredColumns(untimed []*entities.Node, edges []Edge, timedX map[valueobjects.NodeID]valueobjects.Position, fallback float64) map[valueobjects.NodeID]float64 {
	sum := make(map[valueobjects.NodeID]float64, len(untimed))
	count := make(map[valueobjects.NodeID]int, len(untimed))
	isUntimed := make(map[valueobjects.NodeID]bool, len(untimed))
	for _, n := range untimed {
		isUntimed[n.ID] = true
	}

	for _, e := range edges {
		for _, pair := range [2][2]*entities.Node{{e.Source, e.Target}, {e.Target, e.Source}} {
			self, other := pair[0], pair[1]
			if !isUntimed[self.ID] {
				continue
			}
			if pos, ok := timedX[other.ID]; ok {
				sum[self.ID] += pos.X
				count[self.ID]++
			}
		}
	}

	desired := make(map[valueobjects.NodeID]float64, len(untimed))
	for _, n := range untimed {
		if c := count[n.ID]; c > 0 {
			desired[n.ID] = sum[n.ID] / float64(c)
		} else {
			desired[n.ID] = fallback
		}
	}
	return desired
}

func availableWidth(timedCount int, axis ChronoAxis, rows ChronoRows) float64 {
	viewport := rows.ViewportWidth - 2*rows.Padding
	span := 0.0
	if timedCount > 0 {
		span = float64(timedCount-1)*axis.ItemSpacing + axis.CardWidth
	}
	return math.Max(math.Max(viewport, span), 0)
}

// packRow places a row left to right at its desired columns, never closer
// than minPitch. When that makes the row wider than width the row is spread
// evenly across width instead, which can shrink the pitch below minPitch.
func packRow(row []*entities.Node, desired map[valueobjects.NodeID]float64, minPitch, width, centerX float64) ([]float64, float64) {
	xs := make([]float64, len(row))
	if len(row) == 1 {
		xs[0] = desired[row[0].ID]
		return xs, minPitch
	}

	xs[0] = desired[row[0].ID]
	for k := 1; k < len(row); k++ {
		xs[k] = math.Max(desired[row[k].ID], xs[k-1]+minPitch)
	}

	span := xs[len(xs)-1] - xs[0]
	if span <= width {
		// keep the row centred on its desired columns
		shift := (desired[row[0].ID]+desired[row[len(row)-1].ID])/2 - (xs[0]+xs[len(xs)-1])/2
		for k := range xs {
			xs[k] += shift
		}
		return xs, minPitch
	}

	pitch := width / float64(len(row)-1)
	left := centerX - width/2
	for k := range xs {
		xs[k] = left + float64(k)*pitch
	}
	return xs, pitch
}

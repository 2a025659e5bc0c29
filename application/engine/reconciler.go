package engine

import (
	"math"

	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	"constellations/domain/layout"

	"go.uber.org/zap"
)

// SnapshotResult summarizes one reconciliation.
type SnapshotResult struct {
	Nodes        int  `json:"nodes"`
	Links        int  `json:"links"`
	AddedNodes   int  `json:"added_nodes"`
	RemovedNodes int  `json:"removed_nodes"`
	DroppedLinks int  `json:"dropped_links"`
	Structural   bool `json:"structural"`
}

// ApplySnapshot replaces the node and link set. Nodes that existed before
// keep their position, velocity and pin; new nodes start unplaced. Links with
// a missing endpoint are dropped silently. The engine takes ownership of the
// given nodes.
//
// Only structural changes inject energy: a different node count, a different
// valid link count, or a node id not seen before.
func (e *Engine) ApplySnapshot(nodes []*entities.Node, links []*entities.Link) (SnapshotResult, error) {
	var result SnapshotResult
	if e.closed {
		return result, nil
	}

	prevNodes, prevByID, prevLinks, prevEdges := e.nodes, e.byID, e.links, e.edges

	byID := make(map[valueobjects.NodeID]*entities.Node, len(nodes))
	next := make([]*entities.Node, 0, len(nodes))
	contentChanged := false
	for _, n := range nodes {
		if n == nil || n.ID.IsZero() {
			continue
		}
		if _, dup := byID[n.ID]; dup {
			e.logger.Debug("Duplicate node in snapshot ignored", zap.String("node_id", n.ID.String()))
			continue
		}
		if old, ok := prevByID[n.ID]; ok {
			n.CarryStateFrom(old)
			if old.ContentKey() != n.ContentKey() {
				contentChanged = true
			} else if n.MeasuredHeight == 0 {
				n.MeasuredHeight = old.MeasuredHeight
			}
		} else {
			n.X, n.Y = math.NaN(), math.NaN()
			n.VX, n.VY = 0, 0
			n.ForceClearPin()
			result.AddedNodes++
		}
		byID[n.ID] = n
		next = append(next, n)
	}
	result.RemovedNodes = len(prevNodes) - (len(next) - result.AddedNodes)

	validLinks, edges := resolveLinks(links, byID)
	result.DroppedLinks = len(links) - len(validLinks)
	if result.DroppedLinks > 0 {
		e.logger.Debug("Links without both endpoints filtered",
			zap.Int("dropped", result.DroppedLinks))
	}

	result.Nodes, result.Links = len(next), len(validLinks)
	result.Structural = len(next) != len(prevNodes) ||
		len(validLinks) != len(prevLinks) ||
		result.AddedNodes > 0

	e.nodes, e.byID, e.links, e.edges = next, byID, validLinks, edges
	if err := e.sim.SetGraph(next, edges); err != nil {
		e.nodes, e.byID, e.links, e.edges = prevNodes, prevByID, prevLinks, prevEdges
		e.solverFailed("snapshot", err)
		return SnapshotResult{}, err
	}

	e.rebindDrag()
	e.pruneInteractionState()

	if result.Structural {
		first := len(prevNodes) == 0
		e.installStrategy()
		if first {
			e.sim.SetAlpha(1)
			e.sim.Restart()
		} else {
			e.sim.Reheat(e.cfg.Simulation.ReheatAlpha)
		}
		e.metrics.Reheated("snapshot")
	} else if contentChanged && e.opts.Mode.IsChronological() {
		e.pinsDirty = true
	}

	if e.opts.Mode.IsChronological() && (result.AddedNodes > 0 || contentChanged) {
		e.measure.arm()
	}

	e.metrics.SnapshotApplied(result.Structural, result.DroppedLinks)
	return result, nil
}

// resolveLinks keeps links whose endpoints both exist, are distinct, and
// whose id was not seen earlier in the list.
func resolveLinks(links []*entities.Link, byID map[valueobjects.NodeID]*entities.Node) ([]*entities.Link, []layout.Edge) {
	seen := make(map[valueobjects.LinkID]bool, len(links))
	valid := make([]*entities.Link, 0, len(links))
	edges := make([]layout.Edge, 0, len(links))
	for _, l := range links {
		if l == nil || l.SourceID == l.TargetID || seen[l.ID] {
			continue
		}
		source, ok := byID[l.SourceID]
		if !ok {
			continue
		}
		target, ok := byID[l.TargetID]
		if !ok {
			continue
		}
		seen[l.ID] = true
		valid = append(valid, l)
		edges = append(edges, layout.Edge{Link: l, Source: source, Target: target})
	}
	return valid, edges
}

// pruneInteractionState forgets click focus and hover on removed nodes.
func (e *Engine) pruneInteractionState() {
	if _, ok := e.byID[e.clickFocus]; !ok {
		e.clickFocus = ""
	}
	if _, ok := e.byID[e.hover]; !ok {
		e.hover = ""
	}
	for id := range e.dropped {
		if n, ok := e.byID[id]; !ok || !e.Draggable(n) {
			delete(e.dropped, id)
		}
	}
}

package localworld

import (
	"colonyd/internal/sim/worldview"
)

const (
	pathCost     = 1.0
	stepCost     = 0.1
	maxPathSteps = 400
	detourDepth  = 16
)

// FindPath walks deterministically toward the goal: primary axis first,
// secondary axis when the primary step is blocked, and a small
// breadth-first detour when both are. Swamp tiles cost an extra entry
// under the default profile so terrain-weighted paths read as slower.
func (w *World) FindPath(req worldview.PathRequest) ([]worldview.Position, bool) {
	w.useCPU(pathCost)

	blocked := func(p worldview.Position) bool {
		if w.Terrain(p) == worldview.TerrainWall {
			return true
		}
		return req.AvoidAgents && w.occupied(p)
	}

	cur := req.From
	var path []worldview.Position
	for len(path) < maxPathSteps {
		if cur.RangeTo(req.To) <= req.Range {
			return path, true
		}
		seg, ok := w.nextSegment(cur, req.To, blocked)
		if !ok {
			return nil, false
		}
		for _, next := range seg {
			path = append(path, next)
			if !req.RoadsOneToOne && w.Terrain(next) == worldview.TerrainSwamp {
				// A swamp tile takes an extra tick to cross.
				path = append(path, next)
			}
			if next.RangeTo(req.To) <= req.Range {
				break
			}
		}
		cur = path[len(path)-1]
	}
	return nil, false
}

// nextSegment yields the next stretch of the walk: a single axis step
// when one is open, otherwise the whole detour segment. Detours come
// back whole so the greedy walker cannot immediately undo them.
func (w *World) nextSegment(cur, target worldview.Position, blocked func(worldview.Position) bool) ([]worldview.Position, bool) {
	dx := target.X - cur.X
	dy := target.Y - cur.Y

	primaryX := abs(dx) >= abs(dy)
	first := axisStep(cur, dx, dy, primaryX)
	if first != cur && !blocked(first) {
		return []worldview.Position{first}, true
	}
	second := axisStep(cur, dx, dy, !primaryX)
	if second != cur && !blocked(second) {
		return []worldview.Position{second}, true
	}
	return w.detourSegment(cur, target, blocked)
}

func axisStep(cur worldview.Position, dx, dy int, alongX bool) worldview.Position {
	next := cur
	if alongX {
		if dx > 0 {
			next.X++
		} else if dx < 0 {
			next.X--
		}
		return next
	}
	if dy > 0 {
		next.Y++
	} else if dy < 0 {
		next.Y--
	}
	return next
}

// detourSegment breadth-first searches up to detourDepth for the nearest
// cell strictly closer to the target and returns the whole walk to it.
// Fixed neighbor order keeps the result deterministic.
func (w *World) detourSegment(start, target worldview.Position, blocked func(worldview.Position) bool) ([]worldview.Position, bool) {
	type qItem struct {
		p    worldview.Position
		path []worldview.Position
	}
	dirs := []worldview.Position{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}
	startDist := manhattan(start, target)

	visited := map[worldview.Position]bool{start: true}
	var queue []qItem
	for _, d := range dirs {
		np := worldview.Position{X: start.X + d.X, Y: start.Y + d.Y}
		if !w.inBounds(np) || blocked(np) {
			continue
		}
		visited[np] = true
		queue = append(queue, qItem{p: np, path: []worldview.Position{np}})
	}

	bestDist, bestDepth := startDist, 0
	var best []worldview.Position
	better := func(dist int, path []worldview.Position) bool {
		if best == nil {
			return true
		}
		if dist != bestDist {
			return dist < bestDist
		}
		if len(path) != bestDepth {
			return len(path) < bestDepth
		}
		if path[0].X != best[0].X {
			return path[0].X < best[0].X
		}
		return path[0].Y < best[0].Y
	}

	for head := 0; head < len(queue); head++ {
		it := queue[head]
		if d := manhattan(it.p, target); d < startDist && better(d, it.path) {
			bestDist, bestDepth, best = d, len(it.path), it.path
		}
		if len(it.path) >= detourDepth {
			continue
		}
		for _, dir := range dirs {
			np := worldview.Position{X: it.p.X + dir.X, Y: it.p.Y + dir.Y}
			if visited[np] || !w.inBounds(np) || blocked(np) {
				continue
			}
			visited[np] = true
			next := make([]worldview.Position, len(it.path)+1)
			copy(next, it.path)
			next[len(it.path)] = np
			queue = append(queue, qItem{p: np, path: next})
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func (w *World) MoveStep(agentID string, to worldview.Position) error {
	w.useCPU(stepCost)
	u, err := w.unitByID(agentID)
	if err != nil {
		return err
	}
	if !u.info.CanMove {
		return worldview.Reject(worldview.ErrBlocked, "immobile agent")
	}
	if u.info.Pos.RangeTo(to) > 1 {
		return worldview.Reject(worldview.ErrOutOfRange, "non-adjacent step")
	}
	if w.Terrain(to) == worldview.TerrainWall {
		return worldview.Reject(worldview.ErrBlocked, "wall")
	}
	if to != u.info.Pos && w.occupied(to) {
		return worldview.Reject(worldview.ErrBlocked, "occupied")
	}
	u.info.Pos = to
	return nil
}

func (w *World) CPUUsed() float64 {
	return w.cpuUsed
}

func (w *World) CPULimit() float64 {
	return w.cfg.CPULimit
}

func (w *World) CPUBank() float64 {
	return w.cpuBank
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func manhattan(a, b worldview.Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

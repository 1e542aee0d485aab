package layout

import (
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"dag-explorer/models"
)

// Node draw radii. Tips render larger than ordinary blocks; hit-testing
// uses the same radii so clicks land where the circles are painted.
const (
	BaseRadius = 14.0
	TipRadius  = 20.0
)

// RadiusFor returns the draw radius for a node
func RadiusFor(isTip bool) float64 {
	if isTip {
		return TipRadius
	}
	return BaseRadius
}

// Config holds the simulation and viewport tunables
type Config struct {
	Width      float64
	Height     float64
	Attraction float64 // spring constant pulling edge endpoints together
	Repulsion  float64 // inverse-square push between every node pair
	Damping    float64 // velocity decay per iteration
	EdgeLength float64 // spring rest length
	MaxStep    int     // iteration cap per Step call
	MinScale   float64
	MaxScale   float64
}

// DefaultConfig returns the stock layout configuration
func DefaultConfig() Config {
	return Config{
		Width:      1200,
		Height:     800,
		Attraction: 0.02,
		Repulsion:  8000,
		Damping:    0.85,
		EdgeLength: 90,
		MaxStep:    30,
		MinScale:   0.25,
		MaxScale:   4.0,
	}
}

// Position is a node's current layout coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type body struct {
	hash   string // original-case hash for hit-test results
	x, y   float64
	vx, vy float64
	isTip  bool
}

// Engine runs an incremental force-directed simulation over the current
// snapshot. Bodies persist across snapshot swaps for hashes that survive,
// so the graph does not jump on every poll; dropped nodes lose their
// bodies and new ones are seeded deterministically from their hash.
type Engine struct {
	cfg Config

	mux    sync.Mutex
	bodies map[string]*body
	order  []string
	edges  []models.DagEdge

	scale      float64
	panX, panY float64
}

// NewEngine creates a layout engine
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		bodies: make(map[string]*body),
		scale:  1.0,
	}
}

// SetSnapshot replaces the simulated graph. Existing bodies keep their
// positions and velocities; bodies for vanished hashes are dropped.
func (e *Engine) SetSnapshot(snap *models.DagSnapshot) {
	e.mux.Lock()
	defer e.mux.Unlock()

	if snap == nil {
		e.bodies = make(map[string]*body)
		e.order = nil
		e.edges = nil
		return
	}

	// bodies are keyed by lowercased hash so edges whose endpoint case
	// differs from the node's stored hash still resolve
	next := make(map[string]*body, len(snap.Nodes))
	order := make([]string, 0, len(snap.Nodes))
	for _, node := range snap.Nodes {
		key := strings.ToLower(node.Hash)
		b, ok := e.bodies[key]
		if !ok {
			b = seedBody(key, e.cfg.Width, e.cfg.Height)
		}
		b.hash = node.Hash
		b.isTip = node.IsTip
		next[key] = b
		order = append(order, key)
	}
	e.bodies = next
	e.order = order
	e.edges = snap.Edges
}

// seedBody places a new node on a deterministic ring around the center so
// unseeded nodes do not all stack at the origin
func seedBody(hash string, width, height float64) *body {
	h := fnv.New32a()
	h.Write([]byte(hash))
	v := h.Sum32()
	angle := float64(v%360) * math.Pi / 180
	radius := 40 + float64((v/360)%160)
	return &body{
		x: width/2 + radius*math.Cos(angle),
		y: height/2 + radius*math.Sin(angle),
	}
}

// Step advances the simulation by up to iterations rounds, clamped to the
// configured per-call cap. Large graphs relax over several calls instead
// of converging inside a single frame.
func (e *Engine) Step(iterations int) {
	e.mux.Lock()
	defer e.mux.Unlock()

	if iterations > e.cfg.MaxStep {
		iterations = e.cfg.MaxStep
	}
	for i := 0; i < iterations; i++ {
		e.tick()
	}
}

// tick runs one simulation round: pairwise repulsion, spring attraction
// along edges, then damped integration with viewport clamping.
func (e *Engine) tick() {
	for i, ha := range e.order {
		a := e.bodies[ha]
		for _, hb := range e.order[i+1:] {
			b := e.bodies[hb]
			dx := a.x - b.x
			dy := a.y - b.y
			distSq := dx*dx + dy*dy
			if distSq < 1 {
				distSq = 1
			}
			dist := math.Sqrt(distSq)
			force := e.cfg.Repulsion / distSq
			fx := force * dx / dist
			fy := force * dy / dist
			a.vx += fx
			a.vy += fy
			b.vx -= fx
			b.vy -= fy
		}
	}

	for _, edge := range e.edges {
		a, okA := e.bodies[strings.ToLower(edge.Source)]
		b, okB := e.bodies[strings.ToLower(edge.Target)]
		if !okA || !okB {
			continue
		}
		dx := b.x - a.x
		dy := b.y - a.y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist < 1 {
			dist = 1
		}
		force := e.cfg.Attraction * (dist - e.cfg.EdgeLength)
		fx := force * dx / dist
		fy := force * dy / dist
		a.vx += fx
		a.vy += fy
		b.vx -= fx
		b.vy -= fy
	}

	for _, h := range e.order {
		b := e.bodies[h]
		b.vx *= e.cfg.Damping
		b.vy *= e.cfg.Damping
		b.x += b.vx
		b.y += b.vy
		b.x = clamp(b.x, 0, e.cfg.Width)
		b.y = clamp(b.y, 0, e.cfg.Height)
	}
}

// Positions returns a copy of the current node coordinates, keyed by
// lowercased hash
func (e *Engine) Positions() map[string]Position {
	e.mux.Lock()
	defer e.mux.Unlock()

	out := make(map[string]Position, len(e.bodies))
	for h, b := range e.bodies {
		out[h] = Position{X: b.x, Y: b.y}
	}
	return out
}

// HitTest maps a pointer coordinate to the nearest node whose draw radius
// contains it. Returns false when the click lands on empty canvas.
func (e *Engine) HitTest(x, y float64) (string, bool) {
	e.mux.Lock()
	defer e.mux.Unlock()

	bestHash := ""
	bestDist := math.MaxFloat64
	for _, h := range e.order {
		b := e.bodies[h]
		dx := x - b.x
		dy := y - b.y
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist <= RadiusFor(b.isTip) && dist < bestDist {
			bestDist = dist
			bestHash = b.hash
		}
	}
	return bestHash, bestHash != ""
}

// SetView applies a zoom/pan request, clamping scale to the configured
// bounds, and returns the applied values. Presentation-only state.
func (e *Engine) SetView(scale, panX, panY float64) (float64, float64, float64) {
	e.mux.Lock()
	defer e.mux.Unlock()

	e.scale = clamp(scale, e.cfg.MinScale, e.cfg.MaxScale)
	e.panX = panX
	e.panY = panY
	return e.scale, e.panX, e.panY
}

// View returns the current zoom/pan state
func (e *Engine) View() (float64, float64, float64) {
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.scale, e.panX, e.panY
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

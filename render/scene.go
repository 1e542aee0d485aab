package render

import (
	"math"
	"strconv"
	"strings"

	"dag-explorer/layout"
	"dag-explorer/models"
)

// Fill colors keyed by classification. Tips win over blue/red.
const (
	ColorTip  = "#22c55e"
	ColorBlue = "#3b82f6"
	ColorRed  = "#ef4444"
)

// ColorFor returns the fill color for a node
func ColorFor(node *models.BlockNode) string {
	switch {
	case node.IsTip:
		return ColorTip
	case node.IsBlue:
		return ColorBlue
	default:
		return ColorRed
	}
}

// Point is a 2D scene coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeShape is one circle in the draw list
type NodeShape struct {
	Hash    string  `json:"hash"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"radius"`
	Color   string  `json:"color"`
	Label   string  `json:"label"` // block height
	IsTip   bool    `json:"is_tip"`
	Focused bool    `json:"focused"`
}

// EdgeShape is one directed line with an arrowhead
type EdgeShape struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	From       Point    `json:"from"`
	To         Point    `json:"to"`
	Arrow      [3]Point `json:"arrow"`
	Emphasized bool     `json:"emphasized"`
}

// Scene is the serializable draw list the console paints verbatim. All
// color and shape decisions happen here; no pixel work.
type Scene struct {
	State      models.CacheState    `json:"state"`
	Notice     string               `json:"notice,omitempty"`
	Scale      float64              `json:"scale"`
	PanX       float64              `json:"pan_x"`
	PanY       float64              `json:"pan_y"`
	Nodes      []NodeShape          `json:"nodes"`
	Edges      []EdgeShape          `json:"edges"`
	Statistics models.DagStatistics `json:"statistics"`
}

// BuildScene projects the snapshot and layout positions into a draw list.
// Edges on the focused node's selected-parent chain are emphasized, on top
// of any emphasis the snapshot itself carries.
func BuildScene(snap *models.DagSnapshot, state models.CacheState, notice string,
	positions map[string]layout.Position, sel models.Selection,
	scale, panX, panY float64) *Scene {

	scene := &Scene{
		State:  state,
		Notice: notice,
		Scale:  scale,
		PanX:   panX,
		PanY:   panY,
	}
	if snap == nil {
		return scene
	}
	scene.Statistics = snap.Statistics

	selected := selectedPathEdges(snap, sel.FocusedHash)

	tipByHash := make(map[string]bool, len(snap.Nodes))
	for _, node := range snap.Nodes {
		tipByHash[strings.ToLower(node.Hash)] = node.IsTip
	}

	for _, node := range snap.Nodes {
		pos, ok := positions[strings.ToLower(node.Hash)]
		if !ok {
			continue
		}
		scene.Nodes = append(scene.Nodes, NodeShape{
			Hash:    node.Hash,
			X:       pos.X,
			Y:       pos.Y,
			Radius:  layout.RadiusFor(node.IsTip),
			Color:   ColorFor(node),
			Label:   strconv.FormatInt(node.Height, 10),
			IsTip:   node.IsTip,
			Focused: strings.EqualFold(node.Hash, sel.FocusedHash),
		})
	}

	for _, edge := range snap.Edges {
		from, okA := positions[strings.ToLower(edge.Source)]
		to, okB := positions[strings.ToLower(edge.Target)]
		if !okA || !okB {
			continue
		}
		scene.Edges = append(scene.Edges, EdgeShape{
			Source:     edge.Source,
			Target:     edge.Target,
			From:       Point{from.X, from.Y},
			To:         Point{to.X, to.Y},
			Arrow:      arrowHead(from, to, layout.RadiusFor(tipByHash[strings.ToLower(edge.Target)])),
			Emphasized: edge.IsSelected || selected[edgeKey(edge.Source, edge.Target)],
		})
	}

	return scene
}

// selectedPathEdges walks the selected-parent chain back from the focused
// node and collects its edges for stroke emphasis
func selectedPathEdges(snap *models.DagSnapshot, focusedHash string) map[string]bool {
	out := make(map[string]bool)
	if focusedHash == "" {
		return out
	}

	byHash := make(map[string]*models.BlockNode, len(snap.Nodes))
	for _, node := range snap.Nodes {
		byHash[strings.ToLower(node.Hash)] = node
	}

	cur := byHash[strings.ToLower(focusedHash)]
	for cur != nil && cur.SelectedParent != "" {
		out[edgeKey(cur.SelectedParent, cur.Hash)] = true
		cur = byHash[strings.ToLower(cur.SelectedParent)]
	}
	return out
}

func edgeKey(source, target string) string {
	return strings.ToLower(source) + ">" + strings.ToLower(target)
}

// arrowHead computes the three points of a directional arrowhead, its tip
// pulled back to the target circle's boundary
func arrowHead(from, to layout.Position, targetRadius float64) [3]Point {
	dx := to.X - from.X
	dy := to.Y - from.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 1 {
		dist = 1
	}
	ux := dx / dist
	uy := dy / dist

	tipX := to.X - ux*targetRadius
	tipY := to.Y - uy*targetRadius

	const wingLen = 9.0
	const wingAngle = math.Pi / 7

	leftX := tipX - wingLen*(ux*math.Cos(wingAngle)-uy*math.Sin(wingAngle))
	leftY := tipY - wingLen*(uy*math.Cos(wingAngle)+ux*math.Sin(wingAngle))
	rightX := tipX - wingLen*(ux*math.Cos(wingAngle)+uy*math.Sin(wingAngle))
	rightY := tipY - wingLen*(uy*math.Cos(wingAngle)-ux*math.Sin(wingAngle))

	return [3]Point{
		{tipX, tipY},
		{leftX, leftY},
		{rightX, rightY},
	}
}

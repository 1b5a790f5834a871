package faceplot

// region is an axis-aligned ellipse in unit face coordinates
// (x and y as fractions of the canvas, y increasing downward).
type region struct {
	cx, cy, rx, ry float64
}

// mirror reflects a region across the vertical face midline
func mirror(r region) region {
	return region{1 - r.cx, r.cy, r.rx, r.ry}
}

// pair returns a region together with its mirrored twin
func pair(r region) []region {
	return []region{r, mirror(r)}
}

// Static sketch geometry. The schematic face is an oval with brows,
// eyes, a nose line and a mouth, drawn as thin outlines under the
// muscle heatmap.
var (
	faceOutline = region{0.5, 0.52, 0.36, 0.42}
	leftBrow    = region{0.35, 0.36, 0.1, 0.025}
	leftEye     = region{0.35, 0.44, 0.08, 0.03}
	mouth       = region{0.5, 0.72, 0.11, 0.045}

	noseTop    = point{0.5, 0.44}
	noseBottom = point{0.5, 0.60}
)

type point struct {
	x, y float64
}

// muscleRegions maps each canonical AU (by feat column name) to the
// facial regions its activation heats up. Placement follows the usual
// FACS muscle chart: brows up top, orbicularis around the eyes,
// zygomaticus toward the mouth corners, mentalis on the chin.
var muscleRegions = map[string][]region{
	"AU01": pair(region{0.43, 0.33, 0.05, 0.03}),   // inner brow raiser
	"AU02": pair(region{0.27, 0.34, 0.05, 0.03}),   // outer brow raiser
	"AU04": {{0.5, 0.36, 0.09, 0.04}},              // brow lowerer
	"AU05": pair(region{0.35, 0.41, 0.075, 0.025}), // upper lid raiser
	"AU06": pair(region{0.3, 0.52, 0.08, 0.05}),    // cheek raiser
	"AU07": pair(region{0.35, 0.465, 0.075, 0.02}), // lid tightener
	"AU09": {{0.5, 0.46, 0.055, 0.04}},             // nose wrinkler
	"AU10": {{0.5, 0.655, 0.09, 0.025}},            // upper lip raiser
	"AU11": pair(region{0.41, 0.62, 0.035, 0.045}), // nasolabial deepener
	"AU12": pair(region{0.38, 0.71, 0.04, 0.035}),  // lip corner puller
	"AU14": pair(region{0.345, 0.73, 0.035, 0.03}), // dimpler
	"AU15": pair(region{0.38, 0.77, 0.04, 0.03}),   // lip corner depressor
	"AU17": {{0.5, 0.85, 0.08, 0.04}},              // chin raiser
	"AU20": pair(region{0.36, 0.745, 0.05, 0.04}),  // lip stretcher
	"AU23": {{0.5, 0.72, 0.105, 0.04}},             // lip tightener
	"AU24": {{0.5, 0.72, 0.085, 0.03}},             // lip pressor
	"AU25": {{0.5, 0.725, 0.1, 0.035}},             // lips part
	"AU26": {{0.5, 0.8, 0.12, 0.06}},               // jaw drop
	"AU28": {{0.5, 0.72, 0.09, 0.025}},             // lip suck
	"AU43": pair(region{0.35, 0.44, 0.08, 0.035}),  // eyes closed
}

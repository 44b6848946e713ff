package render

import (
	"image/color"

	"trading-chartv1/internal/canvas"
	"trading-chartv1/internal/model"
)

// Color is a "#rrggbb" hex string. It implements color.Color so theme values
// go straight into a canvas.Context; a malformed value draws as mid gray.
type Color string

var fallbackColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	if v, ok := canvas.ParseColor(string(c)); ok {
		return v.RGBA()
	}
	return fallbackColor.RGBA()
}

// Valid reports whether c parses as a hex color.
func (c Color) Valid() bool {
	_, ok := canvas.ParseColor(string(c))
	return ok
}

// Layer opacities.
const (
	PhaseAlpha     = 0.08
	BandAlpha      = 0.18
	VolumeAlpha    = 0.45
	FanOuterAlpha  = 0.12
	FanInnerAlpha  = 0.22
	AnalogAlpha    = 0.85
	CardAlpha      = 0.92
	PhaseTextAlpha = 0.7
)

// Theme holds every color the layers use. It is a plain value threaded
// through Render; there is no package-level theme.
type Theme struct {
	Background      Color `yaml:"background"`
	Grid            Color `yaml:"grid"`
	Text            Color `yaml:"text"`
	MutedText       Color `yaml:"muted_text"`
	Up              Color `yaml:"up"`
	Down            Color `yaml:"down"`
	MA              Color `yaml:"ma"`
	Crosshair       Color `yaml:"crosshair"`
	LabelBackground Color `yaml:"label_background"`
	LabelText       Color `yaml:"label_text"`
	Now             Color `yaml:"now"`
	Forecast        Color `yaml:"forecast"`
	Band            Color `yaml:"band"`
	TailFloor       Color `yaml:"tail_floor"`
	Replay          Color `yaml:"replay"`
	Marker          Color `yaml:"marker"`
	Analog          Color `yaml:"analog"`
	Aftermath       Color `yaml:"aftermath"`
	Fan             Color `yaml:"fan"`
	FanMedian       Color `yaml:"fan_median"`
	Placeholder     Color `yaml:"placeholder"`

	Phases map[model.Phase]Color `yaml:"phases"`
}

// DefaultTheme returns the dark chart theme.
func DefaultTheme() Theme {
	return Theme{
		Background:      "#0f1419",
		Grid:            "#1f2a33",
		Text:            "#c7d0d9",
		MutedText:       "#6b7a88",
		Up:              "#26a69a",
		Down:            "#ef5350",
		MA:              "#f5c542",
		Crosshair:       "#8896a4",
		LabelBackground: "#2c3a46",
		LabelText:       "#ffffff",
		Now:             "#9aa7b4",
		Forecast:        "#4fc3f7",
		Band:            "#4fc3f7",
		TailFloor:       "#ff7043",
		Replay:          "#ce93d8",
		Marker:          "#ffffff",
		Analog:          "#ffb74d",
		Aftermath:       "#ffcc80",
		Fan:             "#81c784",
		FanMedian:       "#a5d6a7",
		Placeholder:     "#6b7a88",
		Phases: map[model.Phase]Color{
			model.PhaseAccumulation: "#42a5f5",
			model.PhaseMarkup:       "#66bb6a",
			model.PhaseDistribution: "#ffa726",
			model.PhaseMarkdown:     "#ef5350",
			model.PhaseNeutral:      "#78909c",
		},
	}
}

// Phase returns the zone color for p, falling back to the neutral color.
func (th Theme) Phase(p model.Phase) Color {
	if c, ok := th.Phases[p]; ok {
		return c
	}
	if c, ok := th.Phases[model.PhaseNeutral]; ok {
		return c
	}
	return th.MutedText
}

// Colors lists every theme color by its YAML key; phase colors are keyed
// "phases.<phase>".
func (th Theme) Colors() map[string]Color {
	m := map[string]Color{
		"background":       th.Background,
		"grid":             th.Grid,
		"text":             th.Text,
		"muted_text":       th.MutedText,
		"up":               th.Up,
		"down":             th.Down,
		"ma":               th.MA,
		"crosshair":        th.Crosshair,
		"label_background": th.LabelBackground,
		"label_text":       th.LabelText,
		"now":              th.Now,
		"forecast":         th.Forecast,
		"band":             th.Band,
		"tail_floor":       th.TailFloor,
		"replay":           th.Replay,
		"marker":           th.Marker,
		"analog":           th.Analog,
		"aftermath":        th.Aftermath,
		"fan":              th.Fan,
		"fan_median":       th.FanMedian,
		"placeholder":      th.Placeholder,
	}
	for p, c := range th.Phases {
		m["phases."+string(p)] = c
	}
	return m
}

// Direction returns Up for a non-negative change and Down otherwise.
func (th Theme) Direction(change float64) Color {
	if change >= 0 {
		return th.Up
	}
	return th.Down
}

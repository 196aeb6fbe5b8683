// Package visualiser turns loaded frames into renderable plots and drives
// interactive review of a sequence.
//
// This file defines the render model that every output consumes: the HTTP
// JSON endpoint, the HTML chart, the BEV PNG and the screencast recorder.
package visualiser

import "image/color"

// RGB is a colour with channels in [0, 1].
type RGB [3]float32

// Color converts to an opaque image colour.
func (c RGB) Color() color.RGBA {
	return color.RGBA{R: channel(c[0]), G: channel(c[1]), B: channel(c[2]), A: 0xff}
}

func channel(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	default:
		return uint8(v*255 + 0.5)
	}
}

// Fixed render colours.
var (
	PointColor     = RGB{0, 0, 1}
	BoxColor       = RGB{0, 1, 0}
	KeyedTextColor = RGB{1, 0, 0}
	PlainTextColor = RGB{0, 0, 0}
	RangeColor     = RGB{1, 1, 0}
)

// PointPlot is one drawn point.
type PointPlot struct {
	Pos   [3]float32 `json:"pos"`
	Color RGB        `json:"color"`
	// InBox marks points inside some annotated box.
	InBox bool `json:"in_box"`
}

// Segment is one drawn line.
type Segment struct {
	From [3]float64 `json:"from"`
	To   [3]float64 `json:"to"`
}

// BoxPlot is the wireframe and label of one object.
type BoxPlot struct {
	Class     string     `json:"class"`
	Edges     []Segment  `json:"edges"`
	BoxColor  RGB        `json:"box_color"`
	Text      string     `json:"text"`
	TextColor RGB        `json:"text_color"`
	TextPos   [3]float64 `json:"text_pos"`
	Points    int        `json:"points"`
	Score     *float64   `json:"score,omitempty"`
	ObjectKey string     `json:"object_key,omitempty"`
}

// FramePlot is everything drawn for one frame.
type FramePlot struct {
	// Position is the frame's place in the sequence; Index its file index.
	Position int         `json:"position"`
	Index    int         `json:"index"`
	Points   []PointPlot `json:"points"`
	Boxes    []BoxPlot   `json:"boxes"`
	// Boxes are converted even when hidden so toggling is free.
	ShowBoxes bool `json:"show_boxes"`

	Range     []Segment `json:"range"`
	InRange   int       `json:"in_range"`
	PointSize float64   `json:"point_size"`
}

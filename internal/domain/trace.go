package domain

// Trace names, in output order.
const (
	TraceSmoothed      = "NDVI (Savgol)"
	TraceRaw           = "NDVI (Original)"
	TracePrecipitation = "Precipitation"
)

// Style carries the fixed visual hints of a trace.
type Style struct {
	Color string `json:"color"`
}

// Trace is a renderer-agnostic series descriptor. X holds YYYY-MM-DD dates and
// Y the matching values; the remaining fields are rendering hints.
type Trace struct {
	X      []string  `json:"x"`
	Y      []float64 `json:"y"`
	Type   string    `json:"type"`
	Mode   string    `json:"mode,omitempty"`
	Name   string    `json:"name"`
	Line   *Style    `json:"line,omitempty"`
	Marker *Style    `json:"marker,omitempty"`
	YAxis  string    `json:"yaxis,omitempty"`
}

// Package assembles the smoothed index, raw index and precipitation traces in
// that order. The index traces share index's dates; precipitation keeps its
// own. No resampling happens between the two axes.
func Package(index, smoothed, precip Series) []Trace {
	dates := index.Dates()
	return []Trace{
		{
			X:    dates,
			Y:    smoothed.Values(),
			Type: "scatter",
			Mode: "lines",
			Name: TraceSmoothed,
			Line: &Style{Color: "green"},
		},
		{
			X:      dates,
			Y:      index.Values(),
			Type:   "scatter",
			Mode:   "markers",
			Name:   TraceRaw,
			Marker: &Style{Color: "rgba(255, 165, 0, 0.2)"},
		},
		{
			X:      precip.Dates(),
			Y:      precip.Values(),
			Type:   "bar",
			Name:   TracePrecipitation,
			Marker: &Style{Color: "blue"},
			YAxis:  "y2",
		},
	}
}

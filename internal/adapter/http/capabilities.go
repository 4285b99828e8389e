package http

import (
	"net/http"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
)

type capabilities struct {
	Sources       []sourceInfo  `json:"sources"`
	Precipitation datasetInfo   `json:"precipitation"`
	Smoothing     smoothingInfo `json:"smoothing"`
}

type sourceInfo struct {
	Name                string                 `json:"name"`
	Label               string                 `json:"label"`
	Sensors             []domain.SensorProfile `json:"sensors"`
	DefaultLookbackDays float64                `json:"default_lookback_days"`
	SceneFilter         *domain.SceneFilter    `json:"scene_filter,omitempty"`
	NDVIRange           [2]float64             `json:"ndvi_range"`
}

type datasetInfo struct {
	ID   string `json:"id"`
	Band string `json:"band"`
}

type smoothingInfo struct {
	Method string `json:"method"`
	Window int    `json:"window"`
	Order  int    `json:"order"`
}

func handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, describeCapabilities())
}

func describeCapabilities() capabilities {
	out := capabilities{
		Precipitation: datasetInfo{ID: domain.Precipitation.ID, Band: domain.Precipitation.Band},
		Smoothing: smoothingInfo{
			Method: "savitzky-golay",
			Window: domain.SmoothingWindow,
			Order:  domain.SmoothingOrder,
		},
	}
	for _, src := range domain.Sources() {
		out.Sources = append(out.Sources, sourceInfo{
			Name:                src.Name,
			Label:               src.Label,
			Sensors:             src.Sensors,
			DefaultLookbackDays: src.Lookback.Hours() / 24,
			SceneFilter:         src.SceneFilter,
			NDVIRange:           [2]float64{domain.NDVIRange.Min, domain.NDVIRange.Max},
		})
	}
	return out
}

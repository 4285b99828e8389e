package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorProfileValid(t *testing.T) {
	landsat := landsatOLI("LANDSAT/LC08/C02/T1_L2")
	sentinel, err := LookupSource("sentinel2")
	require.NoError(t, err)
	s2 := sentinel.Sensors[0]

	tests := []struct {
		name    string
		profile SensorProfile
		qa      uint64
		want    bool
	}{
		{"landsat clear", landsat, 0, true},
		{"landsat cloud bit", landsat, 1 << 5, false},
		{"landsat shadow bit", landsat, 1 << 3, false},
		{"landsat unrelated bits", landsat, 1<<0 | 1<<6 | 1<<7, true},
		{"sentinel clear", s2, 0, true},
		{"sentinel opaque cloud", s2, 1 << 10, false},
		{"sentinel cirrus", s2, 1 << 11, false},
		{"sentinel ignores landsat shadow bit", s2, 1 << 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.Valid(tt.qa))
		})
	}
}

func TestMaskBits(t *testing.T) {
	assert.Equal(t, []uint{5, 3}, landsatTM("LANDSAT/LT05/C02/T1_L2").MaskBits())
	assert.Equal(t, []uint{7}, SensorProfile{CloudBit: 7}.MaskBits())
}

func TestLookupSource(t *testing.T) {
	t.Run("landsat merges five sensors", func(t *testing.T) {
		src, err := LookupSource("landsat")
		require.NoError(t, err)
		assert.Len(t, src.Sensors, 5)
		assert.Equal(t, LandsatLookback, src.Lookback)
		assert.Nil(t, src.SceneFilter)
	})

	t.Run("sentinel2 has a scene prefilter", func(t *testing.T) {
		src, err := LookupSource("sentinel2")
		require.NoError(t, err)
		require.NotNil(t, src.SceneFilter)
		assert.Equal(t, "CLOUDY_PIXEL_PERCENTAGE", src.SceneFilter.Property)
		assert.InDelta(t, 20.0, src.SceneFilter.LessThan, 0)
		assert.Equal(t, Sentinel2Lookback, src.Lookback)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := LookupSource("modis")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestSourcesSortedByName(t *testing.T) {
	srcs := Sources()
	require.Len(t, srcs, 2)
	assert.Equal(t, "landsat", srcs[0].Name)
	assert.Equal(t, "sentinel2", srcs[1].Name)
}

func TestLookbacksDiffer(t *testing.T) {
	assert.Equal(t, 18250*day, LandsatLookback)
	assert.Equal(t, 1642*day+12*time.Hour, Sentinel2Lookback)
}

func TestBandMapping(t *testing.T) {
	t.Run("landsat TM uses B3/B4", func(t *testing.T) {
		m, err := landsatTM("LANDSAT/LE07/C02/T1_L2").BandMapping()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{BandRed: "SR_B3", BandNIR: "SR_B4", BandQA: "QA_PIXEL"}, m)
	})

	t.Run("landsat OLI uses B4/B5", func(t *testing.T) {
		m, err := landsatOLI("LANDSAT/LC09/C02/T1_L2").BandMapping()
		require.NoError(t, err)
		assert.Equal(t, "SR_B4", m[BandRed])
		assert.Equal(t, "SR_B5", m[BandNIR])
	})

	t.Run("missing band is a schema mismatch", func(t *testing.T) {
		_, err := SensorProfile{ID: "broken", RedBand: "B4", QABand: "QA"}.BandMapping()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
		assert.Contains(t, err.Error(), "NIR")
	})
}

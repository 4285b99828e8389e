// Package domain models vegetation-index and precipitation time series built
// from satellite imagery at a single geographic point.
//
// # Data Sources
//
// Two optical source families are supported, each a fixed set of sensor
// catalogs on the remote geospatial platform:
//
//	landsat:   LANDSAT/LT04, LT05, LE07 (red=SR_B3, nir=SR_B4)
//	           LANDSAT/LC08, LC09       (red=SR_B4, nir=SR_B5)
//	           quality field QA_PIXEL, cloud bit 5, cloud shadow bit 3
//	sentinel2: COPERNICUS/S2_SR_HARMONIZED (red=B4, nir=B8)
//	           quality field QA60, opaque cloud bit 10, cirrus bit 11
//	           scene prefilter CLOUDY_PIXEL_PERCENTAGE < 20
//
// Precipitation comes from a single daily dataset (UCSB-CHG/CHIRPS/DAILY,
// band "precipitation") and is never masked or range filtered.
//
// # Band Normalization
//
// Every sensor is renamed onto the uniform {RED, NIR, QA} schema before the
// per-sensor collections are merged, so the merged collection can be masked
// and indexed with one rule set. A profile missing a band role is rejected
// with [ErrSchemaMismatch] rather than silently dropped.
//
// Mask bits:
//
//	A pixel is valid when (qa & (1 << bit)) == 0 for the cloud bit and for the
//	shadow and cirrus bits when the sensor defines them. See [SensorProfile.Valid].
//
// # Series Construction
//
// The remote platform reduces each image to a single mean value over a
// 500 m region around the point and returns (date, value-or-null) pairs in no
// particular order. [Aggregate] then drops nulls, applies the [0,1] NDVI
// validity range, averages same-day observations across sensors, and sorts by
// date. [SmoothSeries] applies a Savitzky-Golay filter (window 11, order 2)
// only when the series is longer than the window.
//
// Dates are calendar days formatted "2006-01-02" (the platform's
// "YYYY-MM-dd"), which also sort lexically in chronological order.
//
// # Output
//
// [Package] produces exactly three traces in a fixed order: the smoothed
// NDVI line, the raw NDVI markers, and precipitation bars on a secondary
// axis. Index and precipitation dates are never resampled onto a shared grid.
package domain

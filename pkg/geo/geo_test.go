package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	venue := Point{Lat: 6.5244, Lon: 3.3792}

	t.Run("same point is zero", func(t *testing.T) {
		assert.InDelta(t, 0, Distance(venue, venue), 1e-9)
	})

	t.Run("0.0045 degrees of latitude is about 500m", func(t *testing.T) {
		d := Distance(venue, Point{Lat: venue.Lat + 0.0045, Lon: venue.Lon})
		assert.InDelta(t, 500, d, 25)
	})

	t.Run("symmetric", func(t *testing.T) {
		other := Point{Lat: 6.6, Lon: 3.45}
		assert.InDelta(t, Distance(venue, other), Distance(other, venue), 1e-6)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Point{Lat: 45, Lon: -120}.Validate())
	assert.Error(t, Point{Lat: 91, Lon: 0}.Validate())
	assert.Error(t, Point{Lat: 0, Lon: 181}.Validate())
}

package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/floodwatch/floodwatch/internal/geo"
)

func TestRegion_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   geo.Region
		want geo.Region
	}{
		{
			name: "strips district suffix",
			in:   geo.Region{State: "Bihar", District: "Patna District"},
			want: geo.Region{State: "Bihar", District: "Patna", Country: "India"},
		},
		{
			name: "suffix match is case-insensitive",
			in:   geo.Region{State: "Assam", District: "Kamrup Metropolitan DISTRICT", Country: "India"},
			want: geo.Region{State: "Assam", District: "Kamrup Metropolitan", Country: "India"},
		},
		{
			name: "empty fields become sentinels",
			in:   geo.Region{},
			want: geo.Region{State: geo.UnknownState, District: geo.UnknownDistrict, Country: "India"},
		},
		{
			name: "word district alone is kept",
			in:   geo.Region{State: "Kerala", District: "Ernakulam Districts"},
			want: geo.Region{State: "Kerala", District: "Ernakulam Districts", Country: "India"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestCoordinate_Validate(t *testing.T) {
	assert.NoError(t, geo.Coordinate{Lat: 28.6, Lon: 77.2}.Validate())
	assert.ErrorIs(t, geo.Coordinate{Lat: 91, Lon: 0}.Validate(), geo.ErrInvalidCoordinates)
	assert.ErrorIs(t, geo.Coordinate{Lat: 0, Lon: -181}.Validate(), geo.ErrInvalidCoordinates)
}

func TestRegion_Equal(t *testing.T) {
	a := geo.Region{State: "Bihar", District: "Patna", Country: "India", City: "Patna"}
	b := geo.Region{State: "Bihar", District: "Patna", Country: "India"}
	assert.True(t, a.Equal(b))
	b.District = "Gaya"
	assert.False(t, a.Equal(b))
}

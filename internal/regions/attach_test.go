package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

func TestAttachDemographics(t *testing.T) {
	regions := []choropleth.Region{
		{ID: "48", Name: "Texas"},
		{ID: "35", Name: "New Mexico"},
		{ID: "06", Name: "California"},
	}
	values := map[string]float64{
		"48": 29145505,
		"06": 39538223,
	}

	kept, missing := AttachDemographics(regions, values)

	require.Len(t, kept, 2)
	assert.Equal(t, "48", kept[0].ID)
	assert.Equal(t, 29145505.0, kept[0].Demographic)
	assert.Equal(t, "06", kept[1].ID)
	assert.Equal(t, 39538223.0, kept[1].Demographic)

	assert.Equal(t, []string{"35"}, missing)
}

func TestAttachDemographics_AllPresent(t *testing.T) {
	regions := []choropleth.Region{{ID: "a"}, {ID: "b"}}
	values := map[string]float64{"a": 1, "b": 2}

	kept, missing := AttachDemographics(regions, values)
	assert.Len(t, kept, 2)
	assert.Empty(t, missing)
}

func TestAttachDemographics_MissingSorted(t *testing.T) {
	regions := []choropleth.Region{{ID: "z"}, {ID: "a"}, {ID: "m"}}

	kept, missing := AttachDemographics(regions, nil)
	assert.Empty(t, kept)
	assert.Equal(t, []string{"a", "m", "z"}, missing)
}

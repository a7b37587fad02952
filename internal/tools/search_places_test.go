package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaShape(t *testing.T) {
	schema := Schema()
	require.Len(t, schema, 1)

	raw, err := json.Marshal(schema[0])
	require.NoError(t, err)

	var tool struct {
		Type     string `json:"type"`
		Function struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Parameters  struct {
				Schema     string   `json:"$schema"`
				Type       string   `json:"type"`
				Required   []string `json:"required"`
				Properties map[string]struct {
					Type        string `json:"type"`
					Description string `json:"description"`
				} `json:"properties"`
			} `json:"parameters"`
		} `json:"function"`
	}
	require.NoError(t, json.Unmarshal(raw, &tool))

	assert.Equal(t, "function", tool.Type)
	assert.Equal(t, SearchPlacesName, tool.Function.Name)
	assert.Equal(t, SearchPlacesDescription, tool.Function.Description)

	params := tool.Function.Parameters
	assert.Empty(t, params.Schema)
	assert.Equal(t, "object", params.Type)
	assert.Equal(t, []string{"query"}, params.Required)
	require.Len(t, params.Properties, 1)
	assert.Equal(t, "string", params.Properties["query"].Type)
	assert.Equal(t, QueryDescription, params.Properties["query"].Description)
}

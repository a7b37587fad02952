// Package tools holds the function descriptors advertised to the model.
package tools

import (
	"github.com/aimaps/maps-relay/internal/inference"
	"github.com/invopop/jsonschema"
)

const (
	// SearchPlacesName is the only function the relay knows how to execute.
	SearchPlacesName = "search_places"
	// SearchPlacesDescription tells the model when to call search_places.
	SearchPlacesDescription = "Search for places, restaurants, or locations on Google Maps based on user query"
	// QueryDescription documents the single query argument.
	QueryDescription = "The search query, e.g. 'sate ayam near me' or 'cafe in Jakarta'"
)

// SearchPlacesArgs is the argument object of search_places.
type SearchPlacesArgs struct {
	Query string `json:"query" jsonschema_description:"The search query, e.g. 'sate ayam near me' or 'cafe in Jakarta'"`
}

// Definition describes a callable function and its JSON schema parameters.
type Definition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// SearchPlaces returns the search_places definition with parameters reflected from SearchPlacesArgs.
func SearchPlaces() Definition {
	reflector := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	params := reflector.Reflect(&SearchPlacesArgs{})
	params.Version = ""

	return Definition{
		Name:        SearchPlacesName,
		Description: SearchPlacesDescription,
		Parameters:  params,
	}
}

// Inference renders the definition in the shape the chat endpoint expects.
func (d Definition) Inference() inference.Tool {
	return inference.Tool{
		Type: "function",
		Function: inference.ToolFunction{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		},
	}
}

// Schema is the static tool list sent with every inference call.
func Schema() []inference.Tool {
	return []inference.Tool{SearchPlaces().Inference()}
}

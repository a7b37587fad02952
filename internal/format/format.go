// Package format renders place search results as chat-ready markdown.
package format

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aimaps/maps-relay/internal/places"
	"github.com/dustin/go-humanize"
)

const (
	mapsSearchURL = "https://www.google.com/maps/search/?api=1"
	separator     = "\n\n---\n\n"
	noRating      = "N/A"
)

// DeepLink builds a Google Maps URL that opens the given place. The place id is
// expected to be URL-safe already and is embedded as-is.
func DeepLink(name, placeID string) string {
	return mapsSearchURL + "&query=" + url.QueryEscape(name) + "&query_place_id=" + placeID
}

// Places renders one numbered block per place under a header naming the query.
// Callers handle the empty case themselves.
func Places(query string, list []places.Place) string {
	blocks := make([]string, 0, len(list))
	for i, p := range list {
		blocks = append(blocks, block(i+1, p))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are the top places for \"%s\" on Google Maps:\n\n", query)
	b.WriteString(strings.Join(blocks, separator))
	b.WriteString("\n")
	return b.String()
}

func block(n int, p places.Place) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. **%s**\n", n, p.Name)
	fmt.Fprintf(&b, "   ⭐ %s · %s reviews\n", rating(p.Rating), humanize.Comma(int64(p.ReviewCount)))
	fmt.Fprintf(&b, "   _%s_\n", p.FormattedAddress)
	fmt.Fprintf(&b, "   [📍 View on Google Maps](%s)", DeepLink(p.Name, p.PlaceID))
	return b.String()
}

func rating(r *float64) string {
	if r == nil {
		return noRating
	}
	return fmt.Sprintf("%.1f", *r)
}

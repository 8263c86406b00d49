// Package cachekey derives the shared cache key of a search request.
// The format is shared by every process using the same cache and must stay
// byte-stable:
//
//	search:providers:lat:{4dp}:lng:{4dp}:radius:{g}:services:{ids|all}:rating:{g}:tiers:{names|all}:page:{n}:size:{n}
package cachekey

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/discovery/internal/domain/geo"
	"github.com/kailas-cloud/discovery/internal/domain/search/request"
)

const (
	prefix        = "search:providers"
	coordDecimals = 4
	all           = "all"
)

// ForRequest returns the cache key of a validated request. Coordinates are
// quantized to 4 decimals; filter lists are already deduplicated and sorted by
// the request, so differently ordered inputs yield the same key.
func ForRequest(req *request.Request) string {
	f := req.Filters()

	var b strings.Builder
	b.Grow(192)
	b.WriteString(prefix)
	b.WriteString(":lat:")
	b.WriteString(coord(req.Center().Lat()))
	b.WriteString(":lng:")
	b.WriteString(coord(req.Center().Lon()))
	b.WriteString(":radius:")
	b.WriteString(num(req.RadiusKm()))

	b.WriteString(":services:")
	if ids := f.ServiceIDs(); len(ids) > 0 {
		for i, id := range ids {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteString(id.String())
		}
	} else {
		b.WriteString(all)
	}

	b.WriteString(":rating:")
	if r := f.MinRating(); r != nil {
		b.WriteString(num(*r))
	} else {
		b.WriteString("0")
	}

	b.WriteString(":tiers:")
	if tiers := f.Tiers(); len(tiers) > 0 {
		for i, t := range tiers {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteString(t.String())
		}
	} else {
		b.WriteString(all)
	}

	b.WriteString(":page:")
	b.WriteString(strconv.Itoa(req.PageNumber()))
	b.WriteString(":size:")
	b.WriteString(strconv.Itoa(req.PageSize()))
	return b.String()
}

func coord(v float64) string {
	return strconv.FormatFloat(geo.Quantize(v, coordDecimals), 'f', coordDecimals, 64)
}

func num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

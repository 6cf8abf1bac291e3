package timeticket

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Re-Local/Backend/services"
)

var (
	// kakao.maps.LatLng(37.58, 127.00), naver.maps.LatLng(...), new LatLng(...)
	latLngCallRe = regexp.MustCompile(`(?i)(?:kakao\.maps\.|naver\.maps\.|google\.maps\.)?LatLng\s*\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)`)
	// {lat: 37.58, lng: 127.00} and the quoted JSON variant
	latLngPairRe = regexp.MustCompile(`(?i)\blat(?:itude)?["']?\s*[:=]\s*["']?(-?\d+(?:\.\d+)?)["']?[,;\s]+["']?(?:lng|lon|longitude)["']?\s*[:=]\s*["']?(-?\d+(?:\.\d+)?)`)
)

// ExtractCoordinates reads a venue's position from the page. Map container
// data attributes win over inline scripts. Either both values come back or
// neither does.
func ExtractCoordinates(doc *goquery.Document) (lat, lng *float64) {
	if doc == nil {
		return nil, nil
	}

	var found bool
	doc.Find("[data-lat][data-lng]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		lat, lng = CoordinatesFromAttrs(s.AttrOr("data-lat", ""), s.AttrOr("data-lng", ""))
		found = lat != nil
		return !found
	})
	if found {
		return lat, lng
	}

	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); !external {
			scripts = append(scripts, s.Text())
		}
	})
	return CoordinatesFromScript(strings.Join(scripts, "\n"))
}

// CoordinatesFromAttrs parses a data-lat/data-lng pair.
func CoordinatesFromAttrs(rawLat, rawLng string) (lat, lng *float64) {
	la, okLat := services.ToNumber(rawLat)
	ln, okLng := services.ToNumber(rawLng)
	if !okLat || !okLng || !validLatLng(la, ln) {
		return nil, nil
	}
	return &la, &ln
}

// CoordinatesFromScript finds the first LatLng(...) call, or failing that the
// first lat/lng pair, in script source.
func CoordinatesFromScript(src string) (lat, lng *float64) {
	for _, re := range []*regexp.Regexp{latLngCallRe, latLngPairRe} {
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			if lat, lng = CoordinatesFromAttrs(m[1], m[2]); lat != nil {
				return lat, lng
			}
		}
	}
	return nil, nil
}

func validLatLng(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

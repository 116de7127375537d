package services

import (
	"fmt"
	"net/url"
	"strings"

	"campusparking/models"
)

// 地圖提供者
const (
	MapProviderConcept3D = "concept3d"
	MapProviderGoogle    = "google"
)

const (
	concept3DHost         = "https://map.concept3d.com/?id="
	concept3DCampusView   = "ct/15205,15544,40419,68621,68622,97540,83801?sbc/mc/32.775056650791,-117.07214713097?z/17?lvl/0?share"
	noLocationPlaceholder = "no location provided"

	MsgNoConcept3DMarker = "This lot does not have a campus map marker yet. Showing the campus overview instead."
)

// MapOptions 校園地圖的固定參數
type MapOptions struct {
	Concept3DMapID string
	CampusQuery    string
}

// MapView 前端嵌入地圖所需的網址
type MapView struct {
	Provider            string `json:"provider"`
	EmbedURL            string `json:"embed_url"`
	GoogleDirectionsURL string `json:"google_directions_url,omitempty"`
	AppleDirectionsURL  string `json:"apple_directions_url,omitempty"`
	Notice              string `json:"notice,omitempty"`
}

// BuildMapView 未選擇停車場時顯示整個校園；有 Concept3D 標記用 Concept3D，否則用 Google 嵌入
func BuildMapView(lot *models.NormalizedParkingLot, provider string, opts MapOptions) MapView {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != MapProviderConcept3D && provider != MapProviderGoogle {
		provider = ""
	}
	if provider == "" {
		if lot == nil || lot.Concept3DID != "" {
			provider = MapProviderConcept3D
		} else {
			provider = MapProviderGoogle
		}
	}

	base := concept3DHost + opts.Concept3DMapID + "#!"
	view := MapView{Provider: provider}

	switch provider {
	case MapProviderConcept3D:
		if lot != nil && lot.Concept3DID != "" {
			view.EmbedURL = base + "m/" + url.PathEscape(lot.Concept3DID) + "?share"
		} else {
			view.EmbedURL = base + concept3DCampusView
			if lot != nil {
				view.Notice = MsgNoConcept3DMarker
			}
		}
	default:
		view.EmbedURL = "https://www.google.com/maps?q=" + encodeQuery(mapQuery(lot, opts.CampusQuery)) + "&output=embed"
	}

	if lot != nil {
		q := encodeQuery(mapQuery(lot, opts.CampusQuery))
		view.GoogleDirectionsURL = "https://www.google.com/maps/search/" + q
		view.AppleDirectionsURL = "https://maps.apple.com/?q=" + q
	}
	return view
}

// mapQuery 地址優先，其次座標，最後是校園名稱
func mapQuery(lot *models.NormalizedParkingLot, campus string) string {
	if lot == nil {
		return campus
	}
	if loc := strings.TrimSpace(lot.Location); loc != "" && !strings.EqualFold(loc, noLocationPlaceholder) {
		return loc
	}
	if lot.Latitude != nil && lot.Longitude != nil {
		return fmt.Sprintf("%g,%g", *lot.Latitude, *lot.Longitude)
	}
	return campus
}

func encodeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

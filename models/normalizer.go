package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"campusparking/utils"
)

// 資料列的 schema 版本
const (
	SchemaLegacy    = "legacy"
	SchemaLowercase = "lowercase"
	SchemaV2        = "v2"
)

// RawParkingLot 尚未正規化的資料列或 change-feed payload
type RawParkingLot map[string]any

// NormalizedParkingLot 畫面與 API 使用的統一欄位
type NormalizedParkingLot struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Capacity    int      `json:"capacity"`
	Taken       int      `json:"taken"`
	Available   int      `json:"available"`
	Location    string   `json:"location,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Concept3DID string   `json:"concept3dId,omitempty"`
}

type fieldColumns struct {
	id, name, capacity, taken, available, concept3d string
}

// 各 schema 版本自己的欄位名稱
var schemaColumns = map[string]fieldColumns{
	SchemaLegacy:    {id: "Index", name: "LotNumber", capacity: "TotalSpaces", taken: "TakenSpaces", concept3d: "concept3d_id"},
	SchemaLowercase: {id: "index", name: "lotnumber", capacity: "totalspaces", taken: "takenspaces", available: "available_spaces", concept3d: "concept3d_id"},
	SchemaV2:        {id: "id", name: "name", capacity: "capacity", taken: "taken_spaces", available: "available_spaces", concept3d: "concept3d_id"},
}

// 找不到時依序嘗試的其他欄位
var (
	nameAliases      = []string{"LotNumber", "lotnumber"}
	capacityAliases  = []string{"TotalSpaces", "totalspaces"}
	takenAliases     = []string{"taken_spaces", "TakenSpaces", "takenspaces"}
	idAliases        = []string{"Index", "index"}
	concept3dAliases = []string{"concept3d_id", "concept3d_map_id"}
	availableAliases = []string{"available_spaces"}
	locationAliases  = []string{"location", "Location", "address"}
	latitudeAliases  = []string{"latitude", "Latitude", "lat"}
	longitudeAliases = []string{"longitude", "Longitude", "lng"}
)

// DetectSchema 以 schema_version 欄位為準，否則依出現的欄位判斷
func DetectSchema(raw RawParkingLot) string {
	if v, ok := raw["schema_version"]; ok {
		switch s := strings.ToLower(strings.TrimSpace(fmt.Sprint(v))); s {
		case SchemaLegacy, SchemaLowercase, SchemaV2:
			return s
		}
	}
	for _, key := range []string{"LotNumber", "TotalSpaces", "TakenSpaces", "Index"} {
		if present(raw, key) {
			return SchemaLegacy
		}
	}
	for _, key := range []string{"lotnumber", "totalspaces", "takenspaces", "index"} {
		if present(raw, key) {
			return SchemaLowercase
		}
	}
	return SchemaV2
}

// NormalizeParkingLot 將任意欄位命名的資料列轉為 NormalizedParkingLot，不會失敗
func NormalizeParkingLot(raw RawParkingLot) NormalizedParkingLot {
	if raw == nil {
		raw = RawParkingLot{}
	}
	cols := schemaColumns[DetectSchema(raw)]

	lot := NormalizedParkingLot{
		ID:          idString(resolve(raw, "id", cols.id, idAliases)),
		Name:        "Unnamed",
		Capacity:    intOrZero(resolve(raw, "capacity", cols.capacity, capacityAliases)),
		Taken:       intOrZero(resolve(raw, "taken", cols.taken, takenAliases)),
		Concept3DID: stringValue(resolve(raw, "concept3dId", cols.concept3d, concept3dAliases)),
	}
	if name := stringValue(resolve(raw, "name", cols.name, nameAliases)); name != "" {
		lot.Name = name
	}
	if av := resolve(raw, "available", cols.available, availableAliases); av != nil {
		lot.Available = intOrZero(av)
	} else {
		lot.Available = lot.Capacity - lot.Taken
	}
	lot.Location = stringValue(resolve(raw, "", "", locationAliases))
	lot.Latitude = floatPtr(resolve(raw, "", "", latitudeAliases))
	lot.Longitude = floatPtr(resolve(raw, "", "", longitudeAliases))
	return lot
}

// NormalizeAll 正規化整份快照
func NormalizeAll(rows []RawParkingLot) []NormalizedParkingLot {
	out := make([]NormalizedParkingLot, 0, len(rows))
	for _, r := range rows {
		out = append(out, NormalizeParkingLot(r))
	}
	return out
}

// SortLots 依名稱排序，同名時以 id 排序
func SortLots(lots []NormalizedParkingLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if lots[i].Name != lots[j].Name {
			return lots[i].Name < lots[j].Name
		}
		return lots[i].ID < lots[j].ID
	})
}

// Raw 轉回 canonical 欄位，NormalizeParkingLot(n.Raw()) == n
func (n NormalizedParkingLot) Raw() RawParkingLot {
	raw := RawParkingLot{
		"schema_version": SchemaV2,
		"name":           n.Name,
		"capacity":       n.Capacity,
		"taken":          n.Taken,
		"available":      n.Available,
	}
	if n.ID != "" {
		raw["id"] = n.ID
	}
	if n.Location != "" {
		raw["location"] = n.Location
	}
	if n.Latitude != nil {
		raw["latitude"] = *n.Latitude
	}
	if n.Longitude != nil {
		raw["longitude"] = *n.Longitude
	}
	if n.Concept3DID != "" {
		raw["concept3dId"] = n.Concept3DID
	}
	return raw
}

// resolve canonical 欄位優先，其次 schema 自己的欄位，最後依 aliases 順序
func resolve(raw RawParkingLot, canonical, schemaCol string, aliases []string) any {
	if canonical != "" && present(raw, canonical) {
		return raw[canonical]
	}
	if schemaCol != "" && present(raw, schemaCol) {
		return raw[schemaCol]
	}
	for _, key := range aliases {
		if present(raw, key) {
			return raw[key]
		}
	}
	return nil
}

func present(raw RawParkingLot, key string) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func intOrZero(v any) int {
	n, _ := utils.ParseInt(v)
	return n
}

func floatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	f, ok := utils.ParseFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	}
	return idString(v)
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

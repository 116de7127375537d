package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func TestNormalizeParkingLot(t *testing.T) {
	t.Run("Should map legacy mixed-case columns", func(t *testing.T) {
		got := NormalizeParkingLot(RawParkingLot{"LotNumber": "A", "TotalSpaces": 100, "TakenSpaces": 40})
		assert.Equal(t, "A", got.Name)
		assert.Equal(t, 100, got.Capacity)
		assert.Equal(t, 40, got.Taken)
		assert.Equal(t, 60, got.Available)
	})

	t.Run("Should map lowercase columns and explicit available", func(t *testing.T) {
		got := NormalizeParkingLot(RawParkingLot{
			"lotnumber": "P3", "totalspaces": "80", "takenspaces": "20", "available_spaces": 55,
			"concept3d_id": "12345", "index": 7,
		})
		assert.Equal(t, "P3", got.Name)
		assert.Equal(t, 80, got.Capacity)
		assert.Equal(t, 20, got.Taken)
		assert.Equal(t, 55, got.Available)
		assert.Equal(t, "12345", got.Concept3DID)
		assert.Equal(t, "7", got.ID)
	})

	t.Run("Should map v2 table rows", func(t *testing.T) {
		got := NormalizeParkingLot(RawParkingLot{
			"id": "abc", "name": "Lot 1", "capacity": int64(10), "taken_spaces": int64(3),
			"location": "Aztec Walk", "latitude": 32.77, "longitude": "-117.07", "schema_version": "v2",
		})
		assert.Equal(t, NormalizedParkingLot{
			ID: "abc", Name: "Lot 1", Capacity: 10, Taken: 3, Available: 7,
			Location: "Aztec Walk", Latitude: f64(32.77), Longitude: f64(-117.07),
		}, got)
	})

	t.Run("Should prefer canonical keys over aliases", func(t *testing.T) {
		got := NormalizeParkingLot(RawParkingLot{"name": "New", "LotNumber": "Old", "capacity": 5, "TotalSpaces": 9})
		assert.Equal(t, "New", got.Name)
		assert.Equal(t, 5, got.Capacity)
	})

	t.Run("Should fall back through aliases when the schema column is missing", func(t *testing.T) {
		got := NormalizeParkingLot(RawParkingLot{"schema_version": "legacy", "taken_spaces": 4, "TotalSpaces": 10})
		assert.Equal(t, 4, got.Taken)
		assert.Equal(t, 6, got.Available)
	})

	t.Run("Should default missing and junk values", func(t *testing.T) {
		got := NormalizeParkingLot(RawParkingLot{"capacity": "lots", "latitude": "north"})
		assert.Equal(t, "Unnamed", got.Name)
		assert.Equal(t, 0, got.Capacity)
		assert.Equal(t, 0, got.Available)
		assert.Nil(t, got.Latitude)

		assert.Equal(t, NormalizedParkingLot{Name: "Unnamed"}, NormalizeParkingLot(nil))
	})

	t.Run("Should not clamp negative availability", func(t *testing.T) {
		got := NormalizeParkingLot(RawParkingLot{"name": "Full", "capacity": 10, "taken_spaces": 12})
		assert.Equal(t, -2, got.Available)
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	shapes := []RawParkingLot{
		{"LotNumber": "A", "TotalSpaces": 100, "TakenSpaces": 40},
		{"lotnumber": " B ", "totalspaces": "12.9", "takenspaces": "x", "index": 3.0},
		{"id": "u1", "name": "C", "capacity": 10, "taken_spaces": 2, "available_spaces": 1, "concept3d_map_id": "77"},
		{"name": "   ", "latitude": 1.5, "Longitude": json.Number("-2.25"), "address": "Campus"},
		{},
	}
	for _, raw := range shapes {
		once := NormalizeParkingLot(raw)
		assert.Equal(t, once, NormalizeParkingLot(once.Raw()), "%v", raw)
	}
}

func TestDetectSchema(t *testing.T) {
	assert.Equal(t, SchemaLegacy, DetectSchema(RawParkingLot{"LotNumber": "A"}))
	assert.Equal(t, SchemaLowercase, DetectSchema(RawParkingLot{"totalspaces": 1}))
	assert.Equal(t, SchemaV2, DetectSchema(RawParkingLot{"name": "A"}))
	assert.Equal(t, SchemaLowercase, DetectSchema(RawParkingLot{"LotNumber": "A", "schema_version": "LOWERCASE"}))
}

func TestParkingLotToRaw(t *testing.T) {
	id := "9001"
	lot := ParkingLot{ID: "x", Name: "P", Capacity: 20, TakenSpaces: 5, Concept3DID: &id, SchemaVersion: SchemaV2}
	got := NormalizeParkingLot(lot.ToRaw())
	assert.Equal(t, 15, got.Available)
	assert.Equal(t, "9001", got.Concept3DID)
	assert.Equal(t, lot.Available(), got.Available)
}

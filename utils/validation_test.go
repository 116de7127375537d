package utils

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("user@localhost"))
	assert.False(t, ValidateEmail("a b@example.com"))
	assert.True(t, ValidateEmail("user@example.com"))
	assert.True(t, ValidateEmail("First.Last@SDSU.EDU"))
	assert.True(t, ValidateEmail(`"quoted name"@example.org`))
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		in  string
		msg string
	}{
		{"", "Password is required!"},
		{"abc", "Password must be at least 8 characters long!"},
		{"ABCDEFG1", "Password must include at least one lowercase letter!"},
		{"abcdefg1", "Password must include at least one uppercase letter!"},
		{"Abcdefgh", "Password must include at least one number!"},
	}
	for _, tc := range cases {
		res := ValidatePassword(tc.in)
		assert.False(t, res.Valid, tc.in)
		assert.Equal(t, tc.msg, res.Message, tc.in)
	}
	assert.True(t, ValidatePassword("Abcdef12").Valid)
	assert.True(t, ValidatePassword("Abcdef12!").Valid, "symbols are allowed but not required")
}

func TestValidateParkingLotName(t *testing.T) {
	assert.Equal(t, "Parking lot name is required!", ValidateParkingLotName("   ").Message)
	assert.Equal(t, "Parking lot name must be 100 characters or less!", ValidateParkingLotName(strings.Repeat("x", 101)).Message)
	assert.True(t, ValidateParkingLotName(strings.Repeat("x", 100)).Valid)
	assert.True(t, ValidateParkingLotName("Lot 12").Valid)
}

func TestValidateCapacity(t *testing.T) {
	assert.Equal(t, "Capacity must be a valid number!", ValidateCapacity("abc").Message)
	assert.Equal(t, "Capacity must be a valid number!", ValidateCapacity(nil).Message)
	assert.Equal(t, "Capacity must be greater than 0!", ValidateCapacity(0).Message)
	assert.Equal(t, "Capacity must be greater than 0!", ValidateCapacity("-3").Message)
	assert.Equal(t, "Capacity must be a whole number!", ValidateCapacity(12.5).Message)
	assert.True(t, ValidateCapacity(150).Valid)
	assert.True(t, ValidateCapacity("150").Valid)
	assert.True(t, ValidateCapacity("12.5").Valid, "string input is parsed as a leading integer")
	assert.True(t, ValidateCapacity(json.Number("40")).Valid)
}

func TestValidateAvailable(t *testing.T) {
	t.Run("Should accept every remaining count within capacity", func(t *testing.T) {
		for c := 1; c <= 60; c++ {
			for taken := 0; taken <= c; taken++ {
				assert.True(t, ValidateAvailable(c-taken, c).Valid, "c=%d t=%d", c, taken)
			}
		}
	})

	t.Run("Should reject every count above capacity", func(t *testing.T) {
		for c := 1; c <= 60; c++ {
			for over := c + 1; over <= c+30; over++ {
				res := ValidateAvailable(over, c)
				assert.False(t, res.Valid)
				assert.Equal(t, "Available spaces cannot exceed total capacity!", res.Message)
			}
		}
	})

	t.Run("Should report negative and non-numeric values", func(t *testing.T) {
		assert.Equal(t, "Available spaces cannot be negative!", ValidateAvailable(-1, 10).Message)
		assert.Equal(t, "Available spaces must be a valid number!", ValidateAvailable("many", 10).Message)
		assert.True(t, ValidateAvailable("7", 10).Valid)
	})
}

func TestValidateLocation(t *testing.T) {
	assert.Equal(t, "Location is required!", ValidateLocation("").Message)
	assert.Equal(t, "Location must be 150 characters or less!", ValidateLocation(strings.Repeat("a", 151)).Message)
	assert.True(t, ValidateLocation("5500 Campanile Dr").Valid)
}

func TestValidateCoordinates(t *testing.T) {
	assert.True(t, ValidateLatitude(nil).Valid)
	assert.True(t, ValidateLatitude("").Valid)
	assert.True(t, ValidateLatitude(32.7757).Valid)
	assert.True(t, ValidateLatitude("-90").Valid)
	assert.Equal(t, "Latitude must be between -90 and 90!", ValidateLatitude(90.5).Message)
	assert.Equal(t, "Latitude must be a valid number!", ValidateLatitude("north").Message)

	assert.True(t, ValidateLongitude(nil).Valid)
	assert.True(t, ValidateLongitude(-117.0704).Valid)
	assert.Equal(t, "Longitude must be between -180 and 180!", ValidateLongitude(-181).Message)
	assert.Equal(t, "Longitude must be a valid number!", ValidateLongitude("west").Message)
}

func TestValidateParkingLot(t *testing.T) {
	t.Run("Should flag available above capacity", func(t *testing.T) {
		res := ValidateParkingLot(LotInput{Name: "P1", Capacity: 150, Available: 200, Location: "Aztec Rd"})
		assert.False(t, AllValidationsPassed(res))
		assert.Equal(t, "Available spaces cannot exceed total capacity!", res["available"].Message)
		assert.True(t, res["name"].Valid)
	})

	t.Run("Should pass a complete lot", func(t *testing.T) {
		res := ValidateParkingLot(LotInput{
			Name: "P1", Capacity: "150", Available: "100", Location: "Aztec Rd",
			Latitude: 32.77, Longitude: -117.07,
		})
		assert.True(t, AllValidationsPassed(res))
	})

	t.Run("Should treat missing capacity as invalid", func(t *testing.T) {
		res := ValidateParkingLot(LotInput{Name: "P1", Location: "Aztec Rd"})
		assert.Equal(t, "Capacity must be greater than 0!", res["capacity"].Message)
		assert.True(t, res["available"].Valid)
	})
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("Abcdef12")
	assert.NoError(t, err)
	assert.True(t, IsBcryptHash(hash))
	assert.True(t, CheckPasswordHash("Abcdef12", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, IsBcryptHash("Abcdef12"))
}

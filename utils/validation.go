package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// 電子郵件驗證 regex（不分大小寫）
var emailRegex = regexp.MustCompile(`(?i)^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@(([^<>()\[\]\\.,;:\s@"]+\.)+[^<>()\[\]\\.,;:\s@"]{2,})$`)

var (
	lowerRegex = regexp.MustCompile(`[a-z]`)
	upperRegex = regexp.MustCompile(`[A-Z]`)
	digitRegex = regexp.MustCompile(`[0-9]`)
	leadingInt = regexp.MustCompile(`^[+-]?\d+`)
	leadingNum = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

const (
	MaxLotNameLength  = 100
	MaxLocationLength = 150
)

// ValidationResult 單一欄位的驗證結果
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func ok() ValidationResult { return ValidationResult{Valid: true} }

func fail(msg string) ValidationResult { return ValidationResult{Valid: false, Message: msg} }

// ValidateEmail 驗證電子郵件格式
func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}
	return emailRegex.MatchString(strings.ToLower(email))
}

// ValidatePassword 最少 8 個字元，至少一個小寫、一個大寫與一個數字
func ValidatePassword(password string) ValidationResult {
	switch {
	case password == "":
		return fail("Password is required!")
	case len(password) < 8:
		return fail("Password must be at least 8 characters long!")
	case !lowerRegex.MatchString(password):
		return fail("Password must include at least one lowercase letter!")
	case !upperRegex.MatchString(password):
		return fail("Password must include at least one uppercase letter!")
	case !digitRegex.MatchString(password):
		return fail("Password must include at least one number!")
	}
	return ok()
}

// ValidateParkingLotName 名稱不可空白，最多 100 字元
func ValidateParkingLotName(name string) ValidationResult {
	if strings.TrimSpace(name) == "" {
		return fail("Parking lot name is required!")
	}
	if len([]rune(name)) > MaxLotNameLength {
		return fail("Parking lot name must be 100 characters or less!")
	}
	return ok()
}

// ValidateCapacity 容量必須為大於 0 的整數
func ValidateCapacity(capacity any) ValidationResult {
	num, isNum := numericValue(capacity)
	if !isNum {
		return fail("Capacity must be a valid number!")
	}
	if num <= 0 {
		return fail("Capacity must be greater than 0!")
	}
	if num != math.Trunc(num) {
		return fail("Capacity must be a whole number!")
	}
	return ok()
}

// ValidateAvailable 空位數不可為負，也不可超過總容量
func ValidateAvailable(available any, capacity int) ValidationResult {
	num, isNum := numericValue(available)
	if !isNum {
		return fail("Available spaces must be a valid number!")
	}
	if num < 0 {
		return fail("Available spaces cannot be negative!")
	}
	if num > float64(capacity) {
		return fail("Available spaces cannot exceed total capacity!")
	}
	return ok()
}

// numericValue 字串只取開頭整數（與表單輸入一致），數字型別保留原值
func numericValue(v any) (float64, bool) {
	switch v.(type) {
	case string, []byte, json.Number:
		n, isNum := ParseInt(v)
		return float64(n), isNum
	}
	return ParseFloat(v)
}

// ValidateLocation 地址不可空白，最多 150 字元
func ValidateLocation(location string) ValidationResult {
	if strings.TrimSpace(location) == "" {
		return fail("Location is required!")
	}
	if len([]rune(location)) > MaxLocationLength {
		return fail("Location must be 150 characters or less!")
	}
	return ok()
}

// ValidateLatitude 選填，若有值必須介於 -90 與 90
func ValidateLatitude(latitude any) ValidationResult {
	return validateCoordinate(latitude, 90, "Latitude")
}

// ValidateLongitude 選填，若有值必須介於 -180 與 180
func ValidateLongitude(longitude any) ValidationResult {
	return validateCoordinate(longitude, 180, "Longitude")
}

func validateCoordinate(v any, limit float64, label string) ValidationResult {
	if isAbsent(v) {
		return ok()
	}
	num, isNum := ParseFloat(v)
	if !isNum {
		return fail(label + " must be a valid number!")
	}
	if num < -limit || num > limit {
		return fail(fmt.Sprintf("%s must be between %d and %d!", label, -int(limit), int(limit)))
	}
	return ok()
}

// LotInput 表單送出的停車場欄位，數值欄位保留原始型別交給驗證器解析
type LotInput struct {
	Name        string `json:"name"`
	Capacity    any    `json:"capacity"`
	Available   any    `json:"available"`
	Location    string `json:"location"`
	Latitude    any    `json:"latitude"`
	Longitude   any    `json:"longitude"`
	Concept3DID string `json:"concept3dId"`
}

// ValidateParkingLot 一次驗證所有欄位；缺少容量時以 1 作為空位上限
func ValidateParkingLot(lot LotInput) map[string]ValidationResult {
	capacity := lot.Capacity
	if capacity == nil {
		capacity = 0
	}
	bound := 1
	if lot.Capacity != nil {
		bound, _ = ParseInt(lot.Capacity)
	}
	available := lot.Available
	if available == nil {
		available = 0
	}
	return map[string]ValidationResult{
		"name":      ValidateParkingLotName(lot.Name),
		"capacity":  ValidateCapacity(capacity),
		"available": ValidateAvailable(available, bound),
		"location":  ValidateLocation(lot.Location),
		"latitude":  ValidateLatitude(lot.Latitude),
		"longitude": ValidateLongitude(lot.Longitude),
	}
}

// AllValidationsPassed 所有結果皆通過才回傳 true
func AllValidationsPassed(results map[string]ValidationResult) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}

func isAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case *float64:
		return t == nil
	}
	return false
}

// ParseInt 將表單或資料列中的值轉為整數；字串取開頭的整數部分，小數向零截斷
func ParseInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	case *int:
		if t == nil {
			return 0, false
		}
		return *t, true
	case json.Number:
		return ParseInt(string(t))
	case []byte:
		return ParseInt(string(t))
	case string:
		m := leadingInt.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0, false
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// ParseFloat 與 ParseInt 相同規則，但保留小數
func ParseFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), !math.IsNaN(float64(t))
	case *float64:
		if t == nil {
			return 0, false
		}
		return *t, !math.IsNaN(*t)
	case json.Number:
		return ParseFloat(string(t))
	case []byte:
		return ParseFloat(string(t))
	case string:
		m := leadingNum.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	if n, isInt := ParseInt(v); isInt {
		return float64(n), true
	}
	return 0, false
}

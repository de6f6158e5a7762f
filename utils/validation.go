package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kendall-kelly/install-intake-api/models"
)

const (
	CodeMissingFields     = "MISSING_FIELDS"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeInvalidSubmission = "INVALID_SUBMISSION"
	CodeInvalidBody       = "INVALID_BODY"
)

// ValidationError represents a client-caused problem with submitted data
type ValidationError struct {
	Code    string
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// MissingFieldsError lists required fields that were absent or empty
func MissingFieldsError(fields []string) *ValidationError {
	return &ValidationError{
		Code:    CodeMissingFields,
		Message: fmt.Sprintf("Missing required fields: %s", strings.Join(fields, ", ")),
		Fields:  fields,
	}
}

// InvalidStatusError names the accepted status values
func InvalidStatusError(got string) *ValidationError {
	valid := make([]string, len(models.ValidStatuses))
	for i, s := range models.ValidStatuses {
		valid[i] = string(s)
	}
	return &ValidationError{
		Code:    CodeInvalidStatus,
		Message: fmt.Sprintf("Invalid status. Must be one of: %s", strings.Join(valid, ", ")),
		Fields:  []string{"status"},
	}
}

// MaxQuantity is the largest quantity every backend can store; PostgreSQL
// INTEGER columns are 32 bit.
const MaxQuantity = math.MaxInt32

// CheckQuantity rejects quantities outside 0..MaxQuantity
func CheckQuantity(name string, qty int64) error {
	switch {
	case qty < 0:
		return &ValidationError{
			Code:    CodeInvalidQuantity,
			Message: fmt.Sprintf("%s must not be negative", name),
			Fields:  []string{name},
		}
	case qty > MaxQuantity:
		return &ValidationError{
			Code:    CodeInvalidQuantity,
			Message: fmt.Sprintf("%s must not exceed %d", name, MaxQuantity),
			Fields:  []string{name},
		}
	}
	return nil
}

// ParseStatus validates a raw status value
func ParseStatus(raw string) (models.Status, error) {
	status := models.Status(raw)
	if !status.IsValid() {
		return "", InvalidStatusError(raw)
	}
	return status, nil
}

// FlexInt decodes a quantity sent either as a JSON number or as a string,
// which is what HTML forms produce. Empty strings and null decode to zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return f.UnmarshalParam(s)
	}
	return f.UnmarshalParam(string(data))
}

// UnmarshalParam lets gin bind the value from url-encoded form posts
func (f *FlexInt) UnmarshalParam(param string) error {
	raw := strings.TrimSpace(param)
	if raw == "" {
		*f = 0
		return nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		// JSON numbers such as 2.0 are accepted when integral
		fl, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || fl != float64(int(fl)) {
			return fmt.Errorf("quantity %s is not a whole number", raw)
		}
		n = int(fl)
	}
	*f = FlexInt(n)
	return nil
}

// FlexBool decodes true/false as well as the strings "true", "on", "yes", "1"
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*f = false
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return f.UnmarshalParam(s)
	default:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			var n float64
			if nerr := json.Unmarshal(data, &n); nerr != nil {
				return fmt.Errorf("invalid boolean %s", string(data))
			}
			b = n != 0
		}
		*f = FlexBool(b)
		return nil
	}
}

// UnmarshalParam accepts checkbox values from url-encoded form posts
func (f *FlexBool) UnmarshalParam(param string) error {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "true", "on", "yes", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FormType tags the kind of qualification test a record came from.
type FormType string

const (
	FormWPQ  FormType = "wpq"  // welder performance qualification
	FormBPQR FormType = "bpqr" // brazer performance qualification
)

// Record keys for the actual test-coupon values. Extraction upstream
// produces these; the engine re-parses the string-typed ones defensively.
const (
	KeyThickness = "thickness"         // coupon thickness, inches
	KeyDiameter  = "diameter"          // pipe OD as entered, free text
	KeyPosition  = "position"          // test position code, e.g. "6G"
	KeyBacking   = "backing"           // backing description, free text
	KeyPNumber   = "p_number_actual"   // base-metal P-number, e.g. "P1" or "8"
	KeyFNumber   = "f_number_actual"   // filler F-number text, e.g. "F4"
	KeyDeposit   = "deposit_thickness" // deposited weld metal, inches
	KeyFiller    = "filler_type"       // filler classification text
	KeyJoint     = "joint_type"        // brazing joint type, e.g. "lap"
	KeyOverlap   = "overlap_length"    // brazing overlap, inches
)

// Record is the flat map of what was actually used on one test coupon.
// Values are strings, numbers, or nil; the record is read-only input
// owned by the caller.
type Record map[string]any

// Float returns the numeric value at key, accepting native numbers and
// numeric strings.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Text returns the trimmed string at key; false when absent or blank.
func (r Record) Text(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'g', -1, 64)
	case json.Number:
		s = t.String()
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Empty reports whether the record carries no usable value at all.
func (r Record) Empty() bool {
	for _, v := range r {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}

// Package normalize turns raw per-machine OPC UA readings into a canonical
// machine state. Each controller family publishes its status under a
// different variable and integer encoding; the tables in tables.go map
// those onto one closed vocabulary.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Family selects the vendor status table for a machine.
type Family string

const (
	FamilyMakino     Family = "makino"
	FamilyFanuc      Family = "fanuc"
	FamilyWele       Family = "wele"
	FamilyQuaser     Family = "quaser"
	FamilyHeidenhain Family = "heidenhain"
	FamilyDefault    Family = "default"
)

// Canonical statuses referenced by code (the full vocabulary lives in the
// configuration).
const (
	StatusNA        = "N/A"
	StatusUndefined = "Undefined Status"
)

// ParseFamily validates a configured family string.
func ParseFamily(s string) (Family, error) {
	switch Family(strings.ToLower(strings.TrimSpace(s))) {
	case FamilyMakino:
		return FamilyMakino, nil
	case FamilyFanuc:
		return FamilyFanuc, nil
	case FamilyWele:
		return FamilyWele, nil
	case FamilyQuaser:
		return FamilyQuaser, nil
	case FamilyHeidenhain:
		return FamilyHeidenhain, nil
	case FamilyDefault, "":
		return FamilyDefault, nil
	}
	return "", fmt.Errorf("unknown machine family %q", s)
}

// InferFamily guesses the family from the machine name. Explicit
// configuration always wins; this exists for configs that predate the
// family field.
func InferFamily(machineName string) Family {
	name := strings.ToLower(machineName)
	switch {
	case strings.Contains(name, "makino"):
		return FamilyMakino
	case strings.Contains(name, "yasda"):
		return FamilyFanuc
	case strings.Contains(name, "wele"):
		return FamilyWele
	case strings.Contains(name, "quaser"):
		return FamilyQuaser
	case strings.Contains(name, "hpm"), strings.Contains(name, "hsm"), strings.Contains(name, "p500"):
		return FamilyHeidenhain
	}
	return FamilyDefault
}

// Sample is one normalized reading. Pointer fields are omitted from the
// snapshot document when the controller did not supply them.
type Sample struct {
	StatusText         string  `json:"Status_Text"`
	SpindleSpeed       *int    `json:"Spindle_Speed,omitempty"`
	FeedRate           *int    `json:"FeedRate_mm_per_min,omitempty"`
	CurrentProgram     string  `json:"Current_Program,omitempty"`
	Moden              *int    `json:"Moden,omitempty"`
	Motion             *int    `json:"Motion,omitempty"`
	StateNumber        *int    `json:"State_Number,omitempty"`
	OvrSpindle         *int    `json:"OvrSpindle,omitempty"`
	OvrFeed            *int    `json:"OvrFeed,omitempty"`
	Status             *int    `json:"Status,omitempty"`
	TimestampProcessed float64 `json:"Timestamp_Processed"`
	RawStatusKey       string  `json:"Raw_Status_Key_Used,omitempty"`
	RawStatusValue     string  `json:"Raw_Status_Value,omitempty"`
}

// Timestamp returns the sample's processing time.
func (s Sample) Timestamp() time.Time {
	sec, frac := int64(s.TimestampProcessed), s.TimestampProcessed
	return time.Unix(sec, int64((frac-float64(sec))*1e9)).UTC()
}

// Normalize converts a raw reading map into a Sample. It is pure: the same
// inputs always produce the same output, and the raw map is not modified.
func Normalize(machineName string, family Family, raw map[string]any, now time.Time) Sample {
	if family == "" || family == FamilyDefault {
		if inferred := InferFamily(machineName); inferred != FamilyDefault {
			family = inferred
		} else {
			family = FamilyDefault
		}
	}

	s := Sample{
		TimestampProcessed: float64(now.UnixNano()) / 1e9,
	}

	s.StatusText, s.RawStatusKey, s.RawStatusValue = resolveStatus(family, raw)
	s.SpindleSpeed = intField(raw, "Spindle")
	s.FeedRate = intField(raw, "FeedRate")
	s.CurrentProgram = resolveProgram(machineName, family, raw)

	s.Moden = intField(raw, "Moden")
	s.Motion = intField(raw, "Motion")
	s.StateNumber = intField(raw, "State_Number")
	s.OvrSpindle = intField(raw, "OvrSpindle")
	s.OvrFeed = intField(raw, "OvrFeed")
	s.Status = intField(raw, "Status")

	return s
}

func resolveStatus(family Family, raw map[string]any) (status, key, value string) {
	if family == FamilyMakino {
		return resolveMakinoStatus(raw)
	}

	var table map[int]string
	switch family {
	case FamilyFanuc:
		table, key = fanucStatusTable, "Status"
	case FamilyWele:
		table, key = weleStatusTable, "Status"
	case FamilyQuaser:
		table, key = quaserStatusTable, "State_Number"
	case FamilyHeidenhain:
		table, key = heidenhainStatusTable, "State_Number"
	default:
		table, key = defaultStatusTable, "Status"
		if _, ok := raw[key]; !ok {
			if _, ok := raw["State_Number"]; ok {
				key = "State_Number"
			}
		}
	}

	v, present := raw[key]
	if !present || v == nil {
		return StatusNA, key, ""
	}
	value = fmt.Sprint(v)
	code, ok := toInt(v)
	if !ok {
		return StatusUndefined, key, value
	}
	text, ok := table[code]
	if !ok {
		return StatusUndefined, key, value
	}
	return text, key, value
}

func resolveMakinoStatus(raw map[string]any) (status, key, value string) {
	key = "Moden,Motion"

	mv, present := raw["Moden"]
	if !present || mv == nil {
		return StatusNA, key, ""
	}
	moden, ok := toInt(mv)
	if !ok {
		return StatusUndefined, key, fmt.Sprint(mv)
	}

	motion, haveMotion := -1, false
	if nv, present := raw["Motion"]; present && nv != nil {
		if n, ok := toInt(nv); ok {
			motion, haveMotion = n, true
		}
	}

	value = fmt.Sprintf("(%d, %d)", moden, motion)
	if haveMotion {
		if text, ok := makinoPairTable[[2]int{moden, motion}]; ok {
			return text, key, value
		}
	}
	if text, ok := makinoModenTable[moden]; ok {
		return text, key, value
	}
	return StatusUndefined, key, value
}

func resolveProgram(machineName string, family Family, raw map[string]any) string {
	if family == FamilyMakino && hasCompositeProgram(machineName) {
		return makinoCompositeProgram(raw)
	}
	for _, k := range programKeys {
		if v, ok := raw[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// hasCompositeProgram reports whether the Makino model encodes its current
// program across the four numeric variables instead of a plain string.
func hasCompositeProgram(machineName string) bool {
	name := strings.ToLower(machineName)
	return strings.Contains(name, "v77") || strings.Contains(name, "f5") || strings.Contains(name, "v33")
}

// makinoCompositeProgram assembles the program id from Program_num,
// Setting_num, Sub_process_num and Program_id. A fully assembled id looks
// like "N1234-5B77".
func makinoCompositeProgram(raw map[string]any) string {
	var b strings.Builder

	if n := intField(raw, "Program_num"); n != nil && *n != 0 {
		fmt.Fprintf(&b, "N%d-", *n)
	}
	if n := intField(raw, "Setting_num"); n != nil {
		fmt.Fprintf(&b, "%d", *n)
	}
	if n := intField(raw, "Sub_process_num"); n != nil {
		// 1..26 map onto A..Z; 0 means no sub-process.
		if *n >= 1 && *n <= 26 {
			b.WriteByte(byte('A' + *n - 1))
		}
	}
	if n := intField(raw, "Program_id"); n != nil && *n != 0 {
		fmt.Fprintf(&b, "%d", *n)
	}

	return strings.TrimSuffix(b.String(), "-")
}

func intField(raw map[string]any, key string) *int {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := toInt(v)
	if !ok {
		return nil
	}
	return &n
}

// toInt converts controller values to an integer index, tolerating the
// float and string encodings some servers use.
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		return int(x), true
	case float32:
		return int(x), true
	case float64:
		return int(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

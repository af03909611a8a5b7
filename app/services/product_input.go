package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// The admin product form posts numbers as strings and specifications as a
// comma-separated string, so these accept both shapes.

type FlexFloat struct {
	Value float64
	Set   bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		f.Value, f.Set = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("expected a number: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", s)
	}
	f.Value, f.Set = n, true
	return nil
}

type FlexInt struct {
	Value int
	Set   bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var ff FlexFloat
	if err := ff.UnmarshalJSON(b); err != nil {
		return err
	}
	if math.IsNaN(ff.Value) || math.IsInf(ff.Value, 0) {
		return fmt.Errorf("expected a finite number, got %v", ff.Value)
	}
	f.Value, f.Set = int(ff.Value), ff.Set
	return nil
}

// FlexBool is true only for JSON true or the string "true".
type FlexBool struct {
	Value bool
	Set   bool
}

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		f.Value = t
	case string:
		f.Value = strings.EqualFold(strings.TrimSpace(t), "true")
	default:
		return fmt.Errorf("expected a boolean")
	}
	f.Set = true
	return nil
}

// FlexStrings takes ["a","b"] or "a, b".
type FlexStrings struct {
	Value []string
	Set   bool
}

func (f *FlexStrings) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		f.Value, f.Set = trimAll(list), true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("expected a list or a comma-separated string")
	}
	f.Value, f.Set = trimAll(strings.Split(s, ",")), true
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

type ProductInput struct {
	Name             *string     `json:"name"`
	Category         *string     `json:"category"`
	Price            FlexFloat   `json:"price"`
	Stock            FlexInt     `json:"stock"`
	Description      *string     `json:"description"`
	Specifications   FlexStrings `json:"specifications"`
	InStock          FlexBool    `json:"inStock"`
	Image            *string     `json:"image"`
	AdditionalImages *[]string   `json:"additionalImages"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

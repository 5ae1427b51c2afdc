package service

import (
	"strconv"
	"testing"
)

func TestRandomSerialGeneratorFormat(t *testing.T) {
	generator := NewRandomSerialGenerator()
	for i := 0; i < 500; i++ {
		value, err := generator.Next()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if !IsValidSerial(value) {
			t.Fatalf("invalid serial: %q", value)
		}
		number, err := strconv.Atoi(value[3:])
		if err != nil || number < serialNumberMin || number > serialNumberMax {
			t.Fatalf("numeric part out of range: %q", value)
		}
	}
}

func TestIsValidSerial(t *testing.T) {
	cases := map[string]bool{
		"AB-12345":  true,
		"ZZ-99999":  true,
		"ab-12345":  false,
		"AB12345":   false,
		"A1-12345":  false,
		"AB-1234":   false,
		"AB-123456": false,
		" AB-12345": false,
	}
	for value, want := range cases {
		if got := IsValidSerial(value); got != want {
			t.Fatalf("IsValidSerial(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestLineItemPayloadIsSaddle(t *testing.T) {
	cases := []struct {
		name    string
		payload LineItemPayload
		want    bool
	}{
		{name: "product type", payload: LineItemPayload{ProductType: "English SADDLE"}, want: true},
		{name: "tag", payload: LineItemPayload{ProductType: "Tack", Tags: []string{"leather", "Saddles"}}, want: true},
		{name: "title only", payload: LineItemPayload{Title: "Saddle Soap", ProductType: "Care"}, want: false},
		{name: "none", payload: LineItemPayload{ProductType: "Bridle"}, want: false},
	}
	for _, tc := range cases {
		if got := tc.payload.IsSaddle(); got != tc.want {
			t.Fatalf("%s: IsSaddle() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

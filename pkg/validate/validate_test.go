package validate_test

import (
	"testing"

	"github.com/usgears/storefront/pkg/validate"
)

type billing struct {
	FirstName string `json:"firstName" validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	Note      string `json:"note"      validate:"nullable,max=10"`
}

type line struct {
	ID       string `json:"id"       validate:"nullable,objectid"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

type checkout struct {
	Billing  billing `json:"billing"`
	Items    []line  `json:"cartItems" validate:"required,min=1,dive"`
	Shipping string  `json:"shippingMethod" validate:"nullable,in=inside|outside|standard"`
}

func validCheckout() checkout {
	return checkout{
		Billing:  billing{FirstName: "Asha", Email: "asha@example.com"},
		Items:    []line{{ID: "64b7f0c2e4b0a1a2b3c4d5e6", Quantity: 2}},
		Shipping: "inside",
	}
}

func TestValidInput(t *testing.T) {
	if errs := validate.Struct(validCheckout()); validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestNestedKeysUseDottedJSONNames(t *testing.T) {
	in := validCheckout()
	in.Billing.Email = "nope"
	in.Billing.FirstName = "  "

	errs := validate.Struct(&in)
	if _, ok := errs["billing.email"]; !ok {
		t.Errorf("expected billing.email error, got %v", errs)
	}
	if _, ok := errs["billing.firstName"]; !ok {
		t.Errorf("expected billing.firstName error, got %v", errs)
	}
}

func TestDiveIntoSlice(t *testing.T) {
	in := validCheckout()
	in.Items = append(in.Items, line{ID: "bad", Quantity: 0})

	errs := validate.Struct(in)
	if _, ok := errs["cartItems.1.quantity"]; !ok {
		t.Errorf("expected cartItems.1.quantity error, got %v", errs)
	}
	if _, ok := errs["cartItems.1.id"]; !ok {
		t.Errorf("expected cartItems.1.id error, got %v", errs)
	}
	if _, ok := errs["cartItems.0.quantity"]; ok {
		t.Error("first line is valid")
	}
}

func TestEmptySliceFailsRequired(t *testing.T) {
	in := validCheckout()
	in.Items = nil
	if _, ok := validate.Struct(in)["cartItems"]; !ok {
		t.Error("expected cartItems to be required")
	}
}

func TestInRule(t *testing.T) {
	in := validCheckout()
	in.Shipping = "teleport"
	if _, ok := validate.Struct(in)["shippingMethod"]; !ok {
		t.Error("expected shippingMethod to be rejected")
	}

	in.Shipping = ""
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		t.Errorf("nullable shippingMethod should pass, got %v", errs)
	}
}

func TestNullableSkipsRules(t *testing.T) {
	in := validCheckout()
	in.Billing.Note = "this note is far too long"
	if _, ok := validate.Struct(in)["billing.note"]; !ok {
		t.Error("expected max to apply to non-empty note")
	}
}

func TestHelpers(t *testing.T) {
	if !validate.IsObjectID("64b7f0c2e4b0a1a2b3c4d5e6") {
		t.Error("expected valid object id")
	}
	if validate.IsObjectID("64b7f0c2") {
		t.Error("short id must not pass")
	}
	if !validate.IsEmail("rider@usgears.com") || validate.IsEmail("rider@") {
		t.Error("email helper mismatch")
	}
}

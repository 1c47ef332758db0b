package validation

import "testing"

func validApplication() Fields {
	return Fields{
		"firstName":        "Jane",
		"lastName":         "Smith",
		"dateOfBirth":      "1990-04-12",
		"email":            "jane@example.com",
		"phone":            "555-123-4567",
		"streetAddress":    "1 Main St",
		"city":             "Springfield",
		"state":            "IL",
		"zipCode":          "62701",
		"country":          "United States",
		"employmentStatus": "Employed",
		"ssn":              "123-45-6789",
	}
}

func TestApplicationValid(t *testing.T) {
	if errs := Validate(Application, validApplication()); !errs.Empty() {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestApplicationZipCode(t *testing.T) {
	cases := map[string]bool{
		"62701":      true,
		"62701-1234": true,
		"ABCDE":      false,
		"6270":       false,
		"62701-12":   false,
	}
	for zip, ok := range cases {
		fields := validApplication()
		fields["zipCode"] = zip
		errs := Validate(Application, fields)
		_, failed := errs["zipCode"]
		if failed == ok {
			t.Fatalf("zip %q: expected ok=%v, got errors %v", zip, ok, errs)
		}
		if !ok && len(errs) != 1 {
			t.Fatalf("zip %q: expected only a zipCode error, got %v", zip, errs)
		}
	}
}

func TestApplicationRequiredAndFormats(t *testing.T) {
	fields := validApplication()
	fields["firstName"] = "   "
	fields["email"] = "not-an-email"
	fields["ssn"] = "123456789"
	errs := Validate(Application, fields)

	if errs["firstName"] != "First name is required" {
		t.Fatalf("unexpected firstName error %q", errs["firstName"])
	}
	if errs["email"] != "Invalid email address" {
		t.Fatalf("unexpected email error %q", errs["email"])
	}
	if errs["ssn"] != "SSN must be in format XXX-XX-XXXX" {
		t.Fatalf("unexpected ssn error %q", errs["ssn"])
	}
}

func TestRegistrationPasswordRules(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Abcdefg1", true},
		{"abcdefg1", false},
		{"ABCDEFG1", false},
		{"Abcdefgh", false},
		{"Ab1", false},
	}
	for _, tc := range cases {
		errs := Validate(Registration, Fields{"username": "jane_s", "password": tc.password, "confirmPassword": tc.password})
		if errs.Empty() != tc.ok {
			t.Fatalf("password %q: expected ok=%v, got %v", tc.password, tc.ok, errs)
		}
	}
}

func TestRegistrationConfirmationAndUsername(t *testing.T) {
	errs := Validate(Registration, Fields{"username": "j!", "password": "Abcdefg1", "confirmPassword": "Abcdefg2"})
	if errs["confirmPassword"] != "Passwords do not match" {
		t.Fatalf("unexpected confirm error %q", errs["confirmPassword"])
	}
	if errs["username"] != "Must be at least 3 characters" {
		t.Fatalf("unexpected username error %q", errs["username"])
	}

	errs = Validate(Registration, Fields{"username": "jane smith", "password": "Abcdefg1", "confirmPassword": "Abcdefg1"})
	if errs["username"] != "Letters, numbers and underscores only" {
		t.Fatalf("unexpected username error %q", errs["username"])
	}
}

func TestVerificationCode(t *testing.T) {
	if errs := Validate(VerificationCode, Fields{"code": "9999"}); !errs.Empty() {
		t.Fatalf("expected valid code, got %v", errs)
	}
	if errs := Validate(VerificationCode, Fields{"code": "99a9"}); errs.Empty() {
		t.Fatalf("expected invalid code")
	}
}

func TestErrorsMessageIsSorted(t *testing.T) {
	errs := Errors{"zipCode": "bad", "email": "bad"}
	if got := errs.Error(); got != "validation failed: email: bad; zipCode: bad" {
		t.Fatalf("unexpected message %q", got)
	}
}

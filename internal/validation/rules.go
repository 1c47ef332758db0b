package validation

// Application is the rule set for the credit-card application form.
var Application = RuleSet{
	{Name: "firstName", Rules: []Rule{Required("First name is required")}},
	{Name: "lastName", Rules: []Rule{Required("Last name is required")}},
	{Name: "dateOfBirth", Rules: []Rule{Required("Date of birth is required")}},
	{Name: "email", Rules: []Rule{Required("Email is required"), Email("Invalid email address")}},
	{Name: "phone", Rules: []Rule{Required("Phone number is required")}},
	{Name: "streetAddress", Rules: []Rule{Required("Street address is required")}},
	{Name: "city", Rules: []Rule{Required("City is required")}},
	{Name: "state", Rules: []Rule{Required("State is required")}},
	{Name: "zipCode", Rules: []Rule{Required("Zip code is required"), ZipCode("Invalid zip code format")}},
	{Name: "country", Rules: []Rule{Required("Country is required")}},
	{Name: "employmentStatus", Rules: []Rule{Required("Employment status is required")}},
	{Name: "ssn", Rules: []Rule{Required("SSN is required"), SSN("SSN must be in format XXX-XX-XXXX")}},
}

// Registration is the rule set for choosing credentials after approval.
var Registration = RuleSet{
	{Name: "username", Rules: []Rule{
		Required("Username is required"),
		MinLength(3, "Must be at least 3 characters"),
		Matches(usernamePattern, "Letters, numbers and underscores only"),
	}},
	{Name: "password", Rules: []Rule{
		Required("Password is required"),
		Password("Password does not meet all requirements"),
	}},
	{Name: "confirmPassword", Rules: []Rule{
		Required("Please confirm your password"),
		EqualsField("password", "Passwords do not match"),
	}},
}

// Login is the rule set for direct sign-in.
var Login = RuleSet{
	{Name: "username", Rules: []Rule{Required("Username is required")}},
	{Name: "password", Rules: []Rule{Required("Password is required")}},
}

// VerificationCode is the rule set for the one-time code prompt.
var VerificationCode = RuleSet{
	{Name: "code", Rules: []Rule{Required("Verification code is required"), Matches(codePattern, "Enter the 4-digit code")}},
}

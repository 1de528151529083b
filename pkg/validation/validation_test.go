package validation

import "testing"

func TestValidatePhone(t *testing.T) {
	valid := []string{
		"989121234567",
		"989361234567",
		"989991234567",
	}
	for _, phone := range valid {
		if !ValidatePhone(phone) {
			t.Errorf("ValidatePhone(%q) = false, want true", phone)
		}
	}

	invalid := []string{
		"",
		"98912123456",    // too short
		"9891212345678",  // too long
		"979121234567",   // wrong prefix
		"98912123456a",   // non-digit
		"+989121234567",  // leading plus
		"989 121234567",  // space pushes length past the prefix match
		"0989121234567",  // leading zero
	}
	for _, phone := range invalid {
		if ValidatePhone(phone) {
			t.Errorf("ValidatePhone(%q) = true, want false", phone)
		}
	}
}

func TestValidateOtpCode(t *testing.T) {
	if !ValidateOtpCode("012345") {
		t.Error("ValidateOtpCode(\"012345\") = false, want true")
	}

	for _, code := range []string{"", "12345", "1234567", "12345a", "12 456"} {
		if ValidateOtpCode(code) {
			t.Errorf("ValidateOtpCode(%q) = true, want false", code)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	valid := []string{
		"Secret@123",
		"Aa1!aaaa",
		"Complex&Pass9",
	}
	for _, password := range valid {
		if !ValidatePassword(password) {
			t.Errorf("ValidatePassword(%q) = false, want true", password)
		}
	}

	invalid := []string{
		"",
		"short1!",               // too short
		"nouppercase1!",         // missing upper
		"NOLOWERCASE1!",         // missing lower
		"NoNumbers!!",           // missing digit
		"NoSpecials11",          // missing special
		"Toolong@1Toolong@1Too", // over 20 chars
	}
	for _, password := range invalid {
		if ValidatePassword(password) {
			t.Errorf("ValidatePassword(%q) = true, want false", password)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  "); got != "helloworld" {
		t.Errorf("SanitizeString = %q, want %q", got, "helloworld")
	}
}

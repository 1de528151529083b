package crypto

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret@123", 4)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "Secret@123" {
		t.Error("hash equals the plain password")
	}

	if !CheckPassword("Secret@123", hash) {
		t.Error("CheckPassword rejected the correct password")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword accepted a wrong password")
	}
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("Secret@123", 99)
	if err != nil {
		t.Fatalf("HashPassword with out-of-range cost failed: %v", err)
	}
	if !CheckPassword("Secret@123", hash) {
		t.Error("CheckPassword rejected the correct password")
	}
}

func TestCheckPasswordInvalidHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Error("CheckPassword accepted a malformed hash")
	}
}

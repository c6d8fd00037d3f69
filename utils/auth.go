package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NormalizePhone strips spaces, dashes and a leading +91 or 0 from an Indian
// mobile number.
func NormalizePhone(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	switch {
	case strings.HasPrefix(phone, "+91") && len(phone) == 13:
		phone = phone[3:]
	case strings.HasPrefix(phone, "91") && len(phone) == 12:
		phone = phone[2:]
	case strings.HasPrefix(phone, "0") && len(phone) == 11:
		phone = phone[1:]
	}
	return phone
}

// ValidatePhoneNumber reports whether phone is exactly ten digits.
func ValidatePhoneNumber(phone string) bool {
	return phonePattern.MatchString(phone)
}

// RandomDigits returns n cryptographically random decimal digits.
func RandomDigits(n int) (string, error) {
	return randomFrom("0123456789", n)
}

// RandomUppercase returns n cryptographically random letters A-Z.
func RandomUppercase(n int) (string, error) {
	return randomFrom("ABCDEFGHIJKLMNOPQRSTUVWXYZ", n)
}

func randomFrom(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// ValidatePincode reports whether s is exactly six ASCII digits.
func ValidatePincode(s string) bool {
	return pincodePattern.MatchString(s)
}

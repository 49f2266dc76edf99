package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// HashPIN hashes a secondary-factor code. PINs are short, so they always
// get the full configured cost; never store them in a cheaper form.
func HashPIN(code string, cost int) (string, error) {
	return HashPassword(code, cost)
}

// ComparePIN verifies a secondary-factor code against its hashed value.
func ComparePIN(hashed, code string) error {
	return ComparePassword(hashed, code)
}

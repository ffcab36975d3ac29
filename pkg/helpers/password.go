package helpers

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes a plain password at the default cost.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(b), err
}

// CompareHashAndPassword reports whether plain matches the bcrypt hash.
func CompareHashAndPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

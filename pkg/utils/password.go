package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword is used by the local identity provider only; the real
// provider stores credentials on its side.
func HashPassword(pw string) string {
	b, _ := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b)
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

package identity

import "golang.org/x/crypto/bcrypt"

// hashPassword produces the stored representation. bcrypt embeds a
// per-record random salt in the output.
func hashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPassword compares in constant time. An empty stored hash (a
// federated-only account) never matches.
func checkPassword(plaintext, stored string) bool {
	if stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext)) == nil
}

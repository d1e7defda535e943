package utils

// MaskCredential masks an API credential for display and logs.
// Credentials of 10 characters or fewer are fully masked.
func MaskCredential(key string) string {
	if len(key) <= 10 {
		return "****"
	}
	return key[:6] + "****" + key[len(key)-4:]
}

package token

import "strings"

// FromAuthorizationHeader returns the credential of a "Bearer <token>"
// header value, or "" if the header carries no bearer credential.
// The scheme name is matched case-insensitively.
func FromAuthorizationHeader(header string) string {
	scheme, credential, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(credential)
}

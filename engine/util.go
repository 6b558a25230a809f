package engine

import "strings"

// MaskRecipient hides the middle of a recipient key (phone number or handle)
// for log output.
func MaskRecipient(recipient string) string {
	if len(recipient) < 7 {
		return "***"
	}
	return recipient[:3] + strings.Repeat("*", len(recipient)-6) + recipient[len(recipient)-3:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package mpesa

import (
	"regexp"
	"strings"
)

var (
	nonDigits  = regexp.MustCompile(`\D`)
	validPhone = regexp.MustCompile(`^254[17]\d{8}$`)
)

// FormatPhone converts 07XXXXXXXX, +2547XXXXXXXX and 7XXXXXXXX to
// 2547XXXXXXXX. It does not validate.
func FormatPhone(phone string) string {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(cleaned, "0"):
		return "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "254"):
		return cleaned
	default:
		return "254" + cleaned
	}
}

// ValidPhone accepts Safaricom/Airtel numbers in 254 form.
func ValidPhone(phone string) bool {
	return validPhone.MatchString(strings.Join(strings.Fields(phone), ""))
}

package logger

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail keeps the first two characters of the local part and the
// domain: "jane.doe@example.com" becomes "ja***@example.com". Local parts of
// two characters or fewer are masked whole.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// RedactPhone keeps the last three digits of a phone number.
func RedactPhone(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) <= 3 {
		return "***"
	}
	return "***" + string(digits[len(digits)-3:])
}

func redactFields(fields []interface{}) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := strings.ToLower(fmt.Sprint(fields[i]))
		switch v := fields[i+1].(type) {
		case string:
			fields[i+1] = redactValue(key, v)
		case error:
			if v != nil {
				fields[i+1] = redactValue(key, v.Error())
			}
		}
	}
}

func redactValue(key, val string) string {
	switch {
	case strings.Contains(key, "email") && strings.Contains(val, "@"):
		return RedactEmail(val)
	case strings.Contains(key, "phone") || strings.Contains(key, "mobile"):
		return RedactPhone(val)
	}
	return emailPattern.ReplaceAllStringFunc(val, RedactEmail)
}

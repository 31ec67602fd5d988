package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/user_agent"
)

// DeviceFingerprint derives a stable identifier for a client from its
// user agent, keyed with a per-account salt. The same browser on the same
// account always maps to the same fingerprint, while identical browsers
// on different accounts do not collide.
func DeviceFingerprint(salt, userAgent string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(userAgent))
	return hex.EncodeToString(mac.Sum(nil))
}

// DeviceName derives a human-readable label from a user agent string,
// such as "Chrome on Windows 10".
func DeviceName(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "Unknown device"
	}

	ua := user_agent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OSInfo().FullName

	switch {
	case browser != "" && os != "":
		return fmt.Sprintf("%s on %s", browser, os)
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}

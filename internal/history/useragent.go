package history

import "strings"

// DeviceInfo is a coarse classification of the client that performed a
// download, parsed best-effort from the raw user-agent string.
type DeviceInfo struct {
	Device  string
	Browser string
	OS      string
}

const unknown = "Unknown"

// ParseUserAgent classifies a raw user-agent string. Unparseable or empty
// strings degrade to "Unknown" labels, never an error.
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" {
		return DeviceInfo{Device: unknown, Browser: unknown, OS: unknown}
	}

	info := DeviceInfo{Device: "Desktop", Browser: unknown, OS: unknown}

	if containsAny(userAgent, "Mobile", "Android", "iPhone", "iPad", "iPod") {
		if containsAny(userAgent, "iPad", "Tablet") {
			info.Device = "Tablet"
		} else {
			info.Device = "Mobile"
		}
	}

	switch {
	case strings.Contains(userAgent, "Firefox"):
		info.Browser = "Firefox"
	case strings.Contains(userAgent, "Edg"):
		info.Browser = "Edge"
	case strings.Contains(userAgent, "OPR"), strings.Contains(userAgent, "Opera"):
		info.Browser = "Opera"
	case strings.Contains(userAgent, "Chrome"):
		info.Browser = "Chrome"
	case strings.Contains(userAgent, "Safari"):
		info.Browser = "Safari"
	}

	switch {
	case strings.Contains(userAgent, "Windows"):
		info.OS = "Windows"
	case strings.Contains(userAgent, "Mac OS"):
		info.OS = "macOS"
	case strings.Contains(userAgent, "Android"):
		info.OS = "Android"
	case containsAny(userAgent, "iOS", "iPhone", "iPad"):
		info.OS = "iOS"
	case strings.Contains(userAgent, "Linux"):
		info.OS = "Linux"
	}

	return info
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

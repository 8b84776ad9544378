package utils

import (
	"fmt"
	"strings"

	ua "github.com/mileusna/useragent"
)

// DeviceLabel is the coarse, client-reported description of a device. It is
// advisory display data, never a security signal.
type DeviceLabel struct {
	Browser string
	OS      string
	Device  string
	Name    string
}

// DeviceClassifier maps a user-agent string to a device label. Swappable so
// tests and callers without real user agents can stub it out.
type DeviceClassifier interface {
	Classify(userAgent string) DeviceLabel
}

type uaClassifier struct{}

// NewDeviceClassifier returns the default classifier backed by user-agent
// parsing.
func NewDeviceClassifier() DeviceClassifier {
	return uaClassifier{}
}

func (uaClassifier) Classify(userAgent string) DeviceLabel {
	browser, os, device := ParseUserAgent(userAgent)
	return DeviceLabel{
		Browser: browser,
		OS:      os,
		Device:  device,
		Name:    GenerateSessionName(userAgent),
	}
}

// ParseUserAgent extracts useful information from User-Agent string
func ParseUserAgent(userAgent string) (browser, os, device string) {
	if userAgent == "" {
		return "Unknown Browser", "Unknown OS", "Desktop"
	}

	parsedUA := ua.Parse(userAgent)

	// Get browser name (without version)
	if parsedUA.Name != "" {
		browser = parsedUA.Name
	} else {
		browser = "Unknown Browser"
	}

	// Get OS name (without version)
	if parsedUA.OS != "" {
		os = parsedUA.OS
	} else {
		os = "Unknown OS"
	}

	// Determine device type
	device = "Desktop" // Default
	if parsedUA.Mobile {
		if strings.Contains(userAgent, "iPhone") {
			device = "iPhone"
		} else {
			device = "Mobile"
		}
	} else if parsedUA.Tablet {
		device = "Tablet"
	}

	return strings.TrimSpace(browser), strings.TrimSpace(os), device
}

// GenerateSessionName creates a user-friendly session name
func GenerateSessionName(userAgent string) string {
	browser, os, _ := ParseUserAgent(userAgent)
	return fmt.Sprintf("%s on %s", browser, os)
}

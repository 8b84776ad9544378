package utils

import "testing"

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name        string
		userAgent   string
		wantBrowser string
		wantOS      string
		wantDevice  string
	}{
		{
			name:        "Chrome on Windows",
			userAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.131 Safari/537.36",
			wantBrowser: "Chrome",
			wantOS:      "Windows",
			wantDevice:  "Desktop",
		},
		{
			name:        "Safari on iPhone",
			userAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 14_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Mobile/15E148 Safari/604.1",
			wantBrowser: "Safari",
			wantOS:      "iOS",
			wantDevice:  "iPhone",
		},
		{
			name:        "Empty User Agent",
			userAgent:   "",
			wantBrowser: "Unknown Browser",
			wantOS:      "Unknown OS",
			wantDevice:  "Desktop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser, os, device := ParseUserAgent(tt.userAgent)

			t.Logf("UserAgent: %s", tt.userAgent)
			t.Logf("Got browser: %q, want: %q", browser, tt.wantBrowser)
			t.Logf("Got OS: %q, want: %q", os, tt.wantOS)
			t.Logf("Got device: %q, want: %q", device, tt.wantDevice)

			if browser != tt.wantBrowser {
				t.Errorf("ParseUserAgent() browser = %q, want %q", browser, tt.wantBrowser)
			}
			if os != tt.wantOS {
				t.Errorf("ParseUserAgent() os = %q, want %q", os, tt.wantOS)
			}
			if device != tt.wantDevice {
				t.Errorf("ParseUserAgent() device = %q, want %q", device, tt.wantDevice)
			}
		})
	}
}

func TestGenerateSessionName(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{
			name:      "Desktop session",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.131 Safari/537.36",
			want:      "Chrome on Windows",
		},
		{
			name:      "Unknown user agent",
			userAgent: "",
			want:      "Unknown Browser on Unknown OS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateSessionName(tt.userAgent)

			t.Logf("Got session name: %q, want: %q", got, tt.want)

			if got != tt.want {
				t.Errorf("GenerateSessionName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeviceClassifier(t *testing.T) {
	classifier := NewDeviceClassifier()

	label := classifier.Classify("Mozilla/5.0 (iPhone; CPU iPhone OS 14_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Mobile/15E148 Safari/604.1")

	t.Logf("Label: %+v", label)

	if label.Browser != "Safari" {
		t.Errorf("Browser = %q, want Safari", label.Browser)
	}
	if label.Device != "iPhone" {
		t.Errorf("Device = %q, want iPhone", label.Device)
	}
	if label.Name != "Safari on iOS" {
		t.Errorf("Name = %q, want %q", label.Name, "Safari on iOS")
	}
}

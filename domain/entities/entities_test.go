package entities

import (
	"testing"
)

func TestParseFamily(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  DeviceFamily
		expectErr bool
	}{
		{
			name:     "generic line",
			input:    "generic-line",
			expected: FamilyGenericLine,
		},
		{
			name:     "escalation uppercase with spaces",
			input:    "  PRIVILEGED-ESCALATION-REQUIRED ",
			expected: FamilyPrivilegedEscalate,
		},
		{
			name:     "empty defaults to unknown",
			input:    "",
			expected: FamilyUnknown,
		},
		{
			name:     "explicit unknown",
			input:    "unknown",
			expected: FamilyUnknown,
		},
		{
			name:      "invalid family",
			input:     "cisco_ios",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseFamily(tt.input)
			if (err != nil) != tt.expectErr {
				t.Fatalf("ParseFamily(%q) error = %v, expectErr %v", tt.input, err, tt.expectErr)
			}
			if result != tt.expected {
				t.Errorf("ParseFamily(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDeviceFamily_Known(t *testing.T) {
	if !FamilyGenericLine.Known() || !FamilyPrivilegedEscalate.Known() {
		t.Error("Expected built-in families to be known")
	}
	if FamilyUnknown.Known() {
		t.Error("Expected unknown family not to be known")
	}
	if !FamilyPrivilegedEscalate.RequiresEscalation() {
		t.Error("Expected escalation family to require escalation")
	}
	if FamilyGenericLine.RequiresEscalation() {
		t.Error("Expected generic line family not to require escalation")
	}
}

func TestProfile_Address(t *testing.T) {
	tests := []struct {
		name     string
		profile  Profile
		expected string
	}{
		{
			name:     "explicit port",
			profile:  Profile{Host: "10.0.0.1", Port: 2222},
			expected: "10.0.0.1:2222",
		},
		{
			name:     "ssh default port",
			profile:  Profile{Host: "10.0.0.1"},
			expected: "10.0.0.1:22",
		},
		{
			name:     "telnet default port",
			profile:  Profile{Host: "10.0.0.1", Transport: TransportTelnet},
			expected: "10.0.0.1:23",
		},
		{
			name:     "ipv6 host",
			profile:  Profile{Host: "2001:db8::1", Port: 22},
			expected: "[2001:db8::1]:22",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.Address(); got != tt.expected {
				t.Errorf("Address() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestProfile_TransportName(t *testing.T) {
	var profile Profile
	if profile.TransportName() != TransportSSH {
		t.Errorf("Expected default transport ssh, got %s", profile.TransportName())
	}
	profile.Transport = TransportTelnet
	if profile.TransportName() != TransportTelnet {
		t.Errorf("Expected transport telnet, got %s", profile.TransportName())
	}
}

func TestLoginSequence(t *testing.T) {
	prompts := LoginSequence("op", "secret")
	if len(prompts) != 2 {
		t.Fatalf("Expected 2 prompts, got %d", len(prompts))
	}
	if prompts[0].SendCmd != "op" {
		t.Errorf("Expected username to be sent first, got '%s'", prompts[0].SendCmd)
	}
	if prompts[1].SendCmd != "secret" {
		t.Errorf("Expected password to be sent second, got '%s'", prompts[1].SendCmd)
	}
}

package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "ios lowercase", input: "ios", expected: "ios"},
		{name: "ios uppercase", input: "IOS", expected: "ios"},
		{name: "nxos mixed case", input: "NxOs", expected: "nxos"},
		{name: "dmos mixed case", input: "DmOs", expected: "dmos"},
		{name: "with spaces", input: "  xr  ", expected: "xr"},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeName(tt.input)
			if result != tt.expected {
				t.Errorf("normalizeName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name        string
		platform    string
		expectError bool
		expectName  string
	}{
		{name: "ios platform", platform: "ios", expectName: "ios"},
		{name: "nxos platform", platform: "nxos", expectName: "nxos"},
		{name: "xr platform", platform: "XR", expectName: "xr"},
		{name: "dmos platform", platform: "dmos", expectName: "dmos"},
		{name: "generic platform", platform: "generic", expectName: "generic"},
		{name: "invalid platform", platform: "junos", expectError: true},
		{name: "empty platform", platform: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, err := Get(tt.platform)

			if tt.expectError {
				if !errors.Is(err, ErrUnknownPlatform) {
					t.Errorf("Expected ErrUnknownPlatform for platform %q, got %v", tt.platform, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error for platform %s: %v", tt.platform, err)
				return
			}

			if driver.Name() != tt.expectName {
				t.Errorf("Expected driver name %s, got %s", tt.expectName, driver.Name())
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	platforms := Available()

	expected := []string{"xr", "nxos", "ios", "dmos"}
	if len(platforms) != len(expected) {
		t.Fatalf("Available() returned %d drivers, want %d", len(platforms), len(expected))
	}
	for i, name := range expected {
		if platforms[i].Name() != name {
			t.Errorf("Available()[%d] = %s, want %s", i, platforms[i].Name(), name)
		}
	}

	// callers must not be able to reorder the registry
	platforms[0] = nil
	if Available()[0] == nil {
		t.Error("Available() should return a copy")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
		family  entities.DeviceFamily
	}{
		{
			name:    "ios xe",
			version: "Cisco IOS XE Software, Version 17.03.04a\nCisco IOS Software [Amsterdam], IOS-XE Software",
			want:    "ios",
			family:  entities.FamilyPrivilegedEscalate,
		},
		{
			name:    "classic ios",
			version: "Cisco IOS Software, C2960 Software (C2960-LANBASEK9-M), Version 15.0(2)SE11",
			want:    "ios",
			family:  entities.FamilyPrivilegedEscalate,
		},
		{
			name:    "nexus",
			version: "Cisco Nexus Operating System (NX-OS) Software\n  NXOS: version 9.3(8)",
			want:    "nxos",
			family:  entities.FamilyGenericLine,
		},
		{
			name:    "ios xr wins over ios",
			version: "Cisco IOS XR Software, Version 7.3.2\nCopyright (c) 2013-2021 by Cisco Systems, Inc.",
			want:    "xr",
			family:  entities.FamilyGenericLine,
		},
		{
			name:    "datacom",
			version: "DATACOM DM4100\nDmOS version 5.6.2",
			want:    "dmos",
			family:  entities.FamilyGenericLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, err := Detect(tt.version)
			if err != nil {
				t.Fatalf("Detect() unexpected error: %v", err)
			}
			if driver.Name() != tt.want {
				t.Errorf("Detect() = %s, want %s", driver.Name(), tt.want)
			}
			if driver.Family() != tt.family {
				t.Errorf("Family() = %s, want %s", driver.Family(), tt.family)
			}
		})
	}

	if _, err := Detect("Linux debian 6.1.0"); !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("Expected ErrUnknownPlatform, got %v", err)
	}
}

// mockRunner answers every command with a fixed output.
type mockRunner struct {
	output string
	err    error
	cmds   []string
}

func (m *mockRunner) RunCommand(ctx context.Context, cmd string, timeout time.Duration) (entities.CommandResult, error) {
	m.cmds = append(m.cmds, cmd)
	return entities.CommandResult{Command: cmd, Output: m.output}, m.err
}

func TestDetectRemote(t *testing.T) {
	runner := &mockRunner{output: "Cisco Nexus Operating System (NX-OS) Software"}
	driver, err := DetectRemote(context.Background(), runner, time.Second)
	if err != nil {
		t.Fatalf("DetectRemote() unexpected error: %v", err)
	}
	if driver.Name() != "nxos" {
		t.Errorf("DetectRemote() = %s, want nxos", driver.Name())
	}
	if len(runner.cmds) != 1 || runner.cmds[0] != VersionCommand {
		t.Errorf("DetectRemote() ran %v, want [%s]", runner.cmds, VersionCommand)
	}

	failing := &mockRunner{err: errors.New("session closed")}
	if _, err := DetectRemote(context.Background(), failing, time.Second); err == nil {
		t.Error("Expected error when the command fails")
	}

	unknown := &mockRunner{output: "mock response"}
	if _, err := DetectRemote(context.Background(), unknown, time.Second); !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("Expected ErrUnknownPlatform, got %v", err)
	}
}

func TestDriverCommands(t *testing.T) {
	for _, driver := range append(Available(), Generic()) {
		t.Run(driver.Name(), func(t *testing.T) {
			enter, exit := driver.ConfigModeCommands()
			if len(enter) == 0 || len(exit) == 0 {
				t.Errorf("%s: config mode commands must not be empty", driver.Name())
			}
			switch driver.TransferProtocol() {
			case "scp", "sftp":
			default:
				t.Errorf("%s: unexpected transfer protocol %q", driver.Name(), driver.TransferProtocol())
			}
		})
	}

	ios, _ := Get("ios")
	if got := ios.SaveCommands(); len(got) != 1 || got[0] != "write memory" {
		t.Errorf("ios SaveCommands() = %v", got)
	}
	xr, _ := Get("xr")
	if len(xr.SaveCommands()) != 0 {
		t.Errorf("xr SaveCommands() = %v, want none", xr.SaveCommands())
	}
	if len(Generic().DisablePagingCommands()) != 0 {
		t.Error("generic driver should not send paging commands")
	}
}

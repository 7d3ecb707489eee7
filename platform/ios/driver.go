package ios

import (
	"strings"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

const driverName = "ios"

// Driver describes Cisco IOS and IOS-XE devices.
type Driver struct{}

// New creates a new IOS driver instance.
func New() *Driver {
	return &Driver{}
}

// Name returns the canonical platform identifier.
func (d *Driver) Name() string {
	return driverName
}

// Family reports that IOS needs "enable" before configuration.
func (d *Driver) Family() entities.DeviceFamily {
	return entities.FamilyPrivilegedEscalate
}

// Detect reports whether show version output belongs to IOS or IOS-XE.
func (d *Driver) Detect(version string) bool {
	if strings.Contains(version, "IOS-XE") {
		return true
	}
	return strings.Contains(strings.ToLower(version), "cisco ios")
}

// DisablePagingCommands returns commands that turn off the --More-- pager.
func (d *Driver) DisablePagingCommands() []string {
	return []string{"terminal length 0"}
}

// ConfigModeCommands returns the commands entering and leaving global config.
func (d *Driver) ConfigModeCommands() (enter, exit []string) {
	return []string{"configure terminal"}, []string{"end"}
}

// SaveCommands returns commands that persist the running configuration.
func (d *Driver) SaveCommands() []string {
	return []string{"write memory"}
}

// TransferProtocol is scp, which IOS serves through "ip scp server enable".
func (d *Driver) TransferProtocol() string {
	return "scp"
}

package dmos

import (
	"strings"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

const driverName = "dmos"

// Driver describes Datacom DmOS switches.
type Driver struct{}

// New creates a new DmOS driver.
func New() *Driver {
	return &Driver{}
}

// Name returns the canonical platform identifier.
func (d *Driver) Name() string {
	return driverName
}

// Family returns the generic line family.
func (d *Driver) Family() entities.DeviceFamily {
	return entities.FamilyGenericLine
}

// Detect determines if show version output comes from DmOS.
func (d *Driver) Detect(version string) bool {
	lower := strings.ToLower(version)
	return strings.Contains(lower, "dmos") || strings.Contains(lower, "datacom")
}

// DisablePagingCommands returns commands that turn off paging.
func (d *Driver) DisablePagingCommands() []string {
	return []string{"terminal length 0"}
}

// ConfigModeCommands returns the commands entering and leaving config mode.
func (d *Driver) ConfigModeCommands() (enter, exit []string) {
	return []string{"configure terminal"}, []string{"end"}
}

// SaveCommands persists the running configuration.
func (d *Driver) SaveCommands() []string {
	return []string{"copy running-config startup-config"}
}

// TransferProtocol returns sftp.
func (d *Driver) TransferProtocol() string {
	return "sftp"
}

package nxos

import (
	"strings"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

const driverName = "nxos"

// Driver describes Cisco Nexus switches.
type Driver struct{}

func New() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string {
	return driverName
}

// Family is generic-line: NX-OS users land directly in exec mode.
func (d *Driver) Family() entities.DeviceFamily {
	return entities.FamilyGenericLine
}

func (d *Driver) Detect(version string) bool {
	return strings.Contains(version, "NX-OS")
}

func (d *Driver) DisablePagingCommands() []string {
	return []string{"terminal length 0", "terminal width 511"}
}

func (d *Driver) ConfigModeCommands() (enter, exit []string) {
	return []string{"configure terminal"}, []string{"end"}
}

func (d *Driver) SaveCommands() []string {
	return []string{"copy running-config startup-config"}
}

func (d *Driver) TransferProtocol() string {
	return "sftp"
}

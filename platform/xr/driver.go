package xr

import (
	"strings"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

const driverName = "xr"

// Driver describes Cisco IOS XR routers. XR commits configuration
// transactionally, so leaving config mode requires a commit first.
type Driver struct{}

// New creates a new IOS XR driver.
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

// Detect matches "IOS XR". It must run before the IOS driver, whose
// "cisco ios" check would also match XR banners.
func (d *Driver) Detect(version string) bool {
	return strings.Contains(version, "IOS XR")
}

// DisablePagingCommands returns commands that turn off paging.
func (d *Driver) DisablePagingCommands() []string {
	return []string{"terminal length 0", "terminal width 0"}
}

// ConfigModeCommands returns the commands entering and leaving config mode.
func (d *Driver) ConfigModeCommands() (enter, exit []string) {
	return []string{"configure terminal"}, []string{"commit", "end"}
}

// SaveCommands is empty: committed configuration is already persistent.
func (d *Driver) SaveCommands() []string {
	return nil
}

// TransferProtocol returns sftp.
func (d *Driver) TransferProtocol() string {
	return "sftp"
}

package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
	"github.com/carlosrabelo/terminalnator/platform/dmos"
	"github.com/carlosrabelo/terminalnator/platform/ios"
	"github.com/carlosrabelo/terminalnator/platform/nxos"
	"github.com/carlosrabelo/terminalnator/platform/xr"
)

// ErrUnknownPlatform is returned when no driver recognises a device.
var ErrUnknownPlatform = errors.New("unknown device platform")

// VersionCommand is run on the device to identify its operating system.
const VersionCommand = "show version"

// Driver describes the behaviour of one network operating system.
type Driver interface {
	Name() string
	Family() entities.DeviceFamily
	Detect(version string) bool

	DisablePagingCommands() []string
	ConfigModeCommands() (enter, exit []string)
	SaveCommands() []string

	// TransferProtocol is "scp" or "sftp".
	TransferProtocol() string
}

// Order matters: XR banners also contain "Cisco IOS".
var registry = []Driver{
	xr.New(),
	nxos.New(),
	ios.New(),
	dmos.New(),
}

// Get returns a driver by normalized platform name.
func Get(name string) (Driver, error) {
	normalized := normalizeName(name)
	if normalized == genericName {
		return Generic(), nil
	}
	for _, driver := range registry {
		if driver.Name() == normalized {
			return driver, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, name)
}

// Available returns all registered drivers in detection order.
func Available() []Driver {
	out := make([]Driver, len(registry))
	copy(out, registry)
	return out
}

// Detect returns the first driver that recognises the show version output.
func Detect(version string) (Driver, error) {
	for _, driver := range registry {
		if driver.Detect(version) {
			return driver, nil
		}
	}
	return nil, ErrUnknownPlatform
}

// DetectRemote runs show version through runner and classifies the output.
func DetectRemote(ctx context.Context, runner ports.CommandRunner, timeout time.Duration) (Driver, error) {
	result, err := runner.RunCommand(ctx, VersionCommand, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to run %q: %w", VersionCommand, err)
	}
	return Detect(result.Output)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

const genericName = "generic"

// Generic returns a driver for devices no registered driver recognises.
// It issues no paging commands and saves with "write memory".
func Generic() Driver {
	return genericDriver{}
}

type genericDriver struct{}

func (genericDriver) Name() string                  { return genericName }
func (genericDriver) Family() entities.DeviceFamily { return entities.FamilyUnknown }
func (genericDriver) Detect(string) bool            { return false }
func (genericDriver) DisablePagingCommands() []string {
	return nil
}
func (genericDriver) ConfigModeCommands() (enter, exit []string) {
	return []string{"configure terminal"}, []string{"end"}
}
func (genericDriver) SaveCommands() []string   { return []string{"write memory"} }
func (genericDriver) TransferProtocol() string { return "sftp" }

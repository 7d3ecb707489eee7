package entities

import "time"

// CommandResult is the outcome of one command sent to a device
type CommandResult struct {
	Command   string        `json:"command"`
	Output    string        `json:"output"`
	Truncated bool          `json:"truncated"`
	Rejected  bool          `json:"rejected"` // output matched the device error pattern
	Duration  time.Duration `json:"duration"`
}

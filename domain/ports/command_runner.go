package ports

import (
	"context"
	"time"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

// CommandRunner executes a single command on a connected device
type CommandRunner interface {
	RunCommand(ctx context.Context, cmd string, timeout time.Duration) (entities.CommandResult, error)
}

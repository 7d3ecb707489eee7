package ports

import (
	"context"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

// Snapshot is the persisted state of the profile store
type Snapshot struct {
	NextID   int                `yaml:"next_id" json:"next_id"`
	Profiles []entities.Profile `yaml:"profiles" json:"profiles"`
}

// ProfileRepository defines the port for profile persistence
type ProfileRepository interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
}

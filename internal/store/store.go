// Package store keeps the device profile list. Ids are sequential and never
// reused; passwords are never part of a profile.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
	"github.com/carlosrabelo/terminalnator/platform"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrInvalidProfile = errors.New("invalid profile")
)

// Store is the in-memory view of a ProfileRepository. Every mutation is
// written through before it becomes visible.
type Store struct {
	repo ports.ProfileRepository

	mu   sync.RWMutex
	snap ports.Snapshot
}

// Open loads the store from repo.
func Open(ctx context.Context, repo ports.ProfileRepository) (*Store, error) {
	snap, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	maxID := 0
	for _, p := range snap.Profiles {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	if snap.NextID <= maxID {
		snap.NextID = maxID + 1
	}
	sort.Slice(snap.Profiles, func(i, j int) bool { return snap.Profiles[i].ID < snap.Profiles[j].ID })
	return &Store{repo: repo, snap: snap}, nil
}

// List returns all profiles ordered by id.
func (s *Store) List() []entities.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Profile, len(s.snap.Profiles))
	copy(out, s.snap.Profiles)
	return out
}

// Get returns the profile with id or ErrNotFound.
func (s *Store) Get(id int) (entities.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.snap.Profiles[i], nil
	}
	return entities.Profile{}, fmt.Errorf("profile %d: %w", id, ErrNotFound)
}

// Add validates and stores a new profile and returns its id.
func (s *Store) Add(ctx context.Context, host string, port int, username string, family entities.DeviceFamily) (int, error) {
	return s.AddProfile(ctx, entities.Profile{Host: host, Port: port, Username: username, Family: family})
}

// AddProfile stores p under a fresh id. Any id already set on p is ignored.
func (s *Store) AddProfile(ctx context.Context, p entities.Profile) (int, error) {
	if err := Validate(&p); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	p.ID = next.NextID
	next.NextID++
	next.Profiles = append(next.Profiles, p)
	if err := s.commit(ctx, next); err != nil {
		return 0, err
	}
	return p.ID, nil
}

// Remove deletes the profile with id. It reports false when id was absent.
func (s *Store) Remove(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false, nil
	}
	next := s.clone()
	next.Profiles = append(next.Profiles[:i], next.Profiles[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Replace updates the stored profile with the same id.
func (s *Store) Replace(ctx context.Context, p entities.Profile) error {
	if err := Validate(&p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(p.ID)
	if i < 0 {
		return fmt.Errorf("profile %d: %w", p.ID, ErrNotFound)
	}
	next := s.clone()
	next.Profiles[i] = p
	return s.commit(ctx, next)
}

func (s *Store) index(id int) int {
	for i, p := range s.snap.Profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) clone() ports.Snapshot {
	profiles := make([]entities.Profile, len(s.snap.Profiles), len(s.snap.Profiles)+1)
	copy(profiles, s.snap.Profiles)
	return ports.Snapshot{NextID: s.snap.NextID, Profiles: profiles}
}

func (s *Store) commit(ctx context.Context, next ports.Snapshot) error {
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save profiles: %w", err)
	}
	s.snap = next
	return nil
}

// Validate normalizes p in place and checks its fields.
func Validate(p *entities.Profile) error {
	p.Host = strings.TrimSpace(p.Host)
	p.Username = strings.TrimSpace(p.Username)
	p.Transport = strings.ToLower(strings.TrimSpace(p.Transport))
	p.Platform = strings.ToLower(strings.TrimSpace(p.Platform))

	if p.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidProfile)
	}
	if strings.ContainsAny(p.Host, " \t") {
		return fmt.Errorf("%w: host %q contains whitespace", ErrInvalidProfile, p.Host)
	}
	if p.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidProfile)
	}
	switch p.Transport {
	case "", entities.TransportSSH, entities.TransportTelnet:
	default:
		return fmt.Errorf("%w: transport %s is invalid, must be 'ssh' or 'telnet'", ErrInvalidProfile, p.Transport)
	}
	if p.Port == 0 {
		p.Port = entities.DefaultPort(p.TransportName())
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidProfile, p.Port)
	}
	family, err := entities.ParseFamily(string(p.Family))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	p.Family = family
	if p.Platform != "" {
		if _, err := platform.Get(p.Platform); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	}
	return nil
}

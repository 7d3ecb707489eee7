package store

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

// ImportLegacy reads "host username port" lines, the format of the old
// connections.txt, and adds each as a profile with the given family. Blank
// lines and lines starting with # are skipped. It returns the new ids.
func (s *Store) ImportLegacy(ctx context.Context, r io.Reader, family entities.DeviceFamily) ([]int, error) {
	profiles, err := ParseLegacy(r)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(profiles))
	for _, p := range profiles {
		p.Family = family
		id, err := s.AddProfile(ctx, p)
		if err != nil {
			return ids, fmt.Errorf("failed to import %s: %w", p.Host, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseLegacy parses the legacy connection list without storing it.
func ParseLegacy(r io.Reader) ([]entities.Profile, error) {
	var out []entities.Profile
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: expected \"host username port\", got %q", ErrInvalidProfile, lineNo, line)
		}
		port, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: port %q is not a number", ErrInvalidProfile, lineNo, fields[2])
		}
		out = append(out, entities.Profile{Host: fields[0], Username: fields[1], Port: port})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read legacy connections: %w", err)
	}
	return out, nil
}

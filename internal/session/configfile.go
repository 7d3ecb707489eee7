package session

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadConfigLines returns the non-blank lines of a configuration file with
// trailing whitespace and carriage returns removed. Leading indentation is kept.
func ReadConfigLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return lines, nil
}

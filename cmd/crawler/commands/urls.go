package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// collectURLs merges positional URLs with the lines of an optional file.
// Blank lines and lines starting with # are skipped; duplicates keep their
// first position.
func collectURLs(args []string, file string) ([]string, error) {
	urls := append([]string(nil), args...)

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open url file: %w", err)
		}
		defer f.Close()

		lines, err := readURLs(f)
		if err != nil {
			return nil, err
		}
		urls = append(urls, lines...)
	}

	seen := make(map[string]bool, len(urls))
	out := urls[:0]
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out, nil
}

func readURLs(r io.Reader) ([]string, error) {
	var urls []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read url file: %w", err)
	}
	return urls, nil
}

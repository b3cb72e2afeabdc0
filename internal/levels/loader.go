package levels

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	separatorRe = regexp.MustCompile(`(?m)^-{3,}[ \t]*$`)
	pairsRe     = regexp.MustCompile(`(?i)^pairs\s*:\s*(\d+)\s*$`)
)

// Load reads level definitions from a list of paths (files or directories).
// Levels are numbered in the order they are read.
//
// A file holds one or more sections separated by a line of three or more
// dashes. Within a section:
//
//	# Name          sets the level name
//	pairs: N        sets the pair count (defaults to the number of values)
//	Value           adds a card value
//	Value: fact     adds a card value with an overlay fact
func Load(paths []string) ([]Level, error) {
	var out []Level

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access path %s: %w", path, err)
		}

		if info.IsDir() {
			files, err := os.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read dir %s: %w", path, err)
			}
			for _, entry := range files {
				if entry.IsDir() {
					continue
				}
				ls, err := loadFile(filepath.Join(path, entry.Name()))
				if err != nil {
					return nil, err
				}
				out = append(out, ls...)
			}
		} else {
			ls, err := loadFile(path)
			if err != nil {
				return nil, err
			}
			out = append(out, ls...)
		}
	}

	for i := range out {
		out[i].Number = i + 1
	}
	return out, nil
}

func loadFile(path string) ([]Level, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	var contentBuilder strings.Builder
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		contentBuilder.WriteString(scanner.Text() + "\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan file %s: %w", path, err)
	}

	var out []Level
	for i, part := range separatorRe.Split(contentBuilder.String(), -1) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		l, err := parseSection(part)
		if err != nil {
			return nil, fmt.Errorf("%s section %d: %w", path, i+1, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func parseSection(section string) (Level, error) {
	l := Level{Facts: map[string]string{}}
	seen := map[string]bool{}

	for _, raw := range strings.Split(section, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			l.Name = strings.TrimSpace(strings.TrimLeft(line, "#"))
			continue
		}

		if m := pairsRe.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return Level{}, fmt.Errorf("invalid pair count %q", m[1])
			}
			l.PairCount = n
			continue
		}

		value, fact, _ := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		if value == "" {
			return Level{}, fmt.Errorf("empty value in line %q", line)
		}
		if seen[value] {
			return Level{}, fmt.Errorf("duplicate value %q", value)
		}
		seen[value] = true
		l.Values = append(l.Values, value)
		if fact = strings.TrimSpace(fact); fact != "" {
			l.Facts[value] = fact
		}
	}

	if len(l.Values) == 0 {
		return Level{}, fmt.Errorf("no values")
	}
	if l.PairCount == 0 {
		l.PairCount = len(l.Values)
	}
	return l, nil
}

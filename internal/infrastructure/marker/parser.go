// Package marker splits agent output into files using the
// "<<- FILENAME: path ->>" line convention.
package marker

import (
	"fmt"
	"regexp"
	"strings"

	"appforge/internal/domain/entity"
)

// Marker renders the line that opens a file block.
func Marker(path string) string {
	return fmt.Sprintf("<<- FILENAME: %s ->>", path)
}

var markerLine = regexp.MustCompile(`^<<-\s*FILENAME:\s*(.*?)\s*->>$`)

// Parser tokenizes agent output on marker lines and greedily consumes the
// following lines as file content until the next marker or end of input.
type Parser struct {
	pattern *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{pattern: markerLine}
}

// Parse returns the files in order of appearance. Text before the first
// marker is ignored, as are blocks with an empty path.
func (p *Parser) Parse(text string) []entity.GeneratedFile {
	var (
		files   []entity.GeneratedFile
		current *entity.GeneratedFile
		body    []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Path != "" {
			files = append(files, *current)
		}
		current = nil
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if path, ok := p.markerPath(line); ok {
			flush()
			current = &entity.GeneratedFile{Path: path}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return files
}

func (p *Parser) markerPath(line string) (string, bool) {
	m := p.pattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

// Heading is a top-level TODO/DONE entry that carries an :ID: property and
// can therefore be billed to.
type Heading struct {
	ID       string
	Title    string
	Status   string // "pending" or "completed"
	Priority string
	Tags     []string
	Source   string
}

var (
	headingRegex = regexp.MustCompile(`^\* (TODO|DONE)\s*(?:\[#([A-Z])\])?\s*(.*?)(?:\s+(:(\w+(:\w+)*):))?\s*$`)
	idRegex      = regexp.MustCompile(`^:ID:\s+(\S+)`)
)

func parseFile(filePath string) ([]Heading, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, filePath)
}

// ParseFiles parses every file and concatenates the headings.
func ParseFiles(filePaths []string) ([]Heading, error) {
	var all []Heading
	for _, filePath := range filePaths {
		headings, err := parseFile(filePath)
		if err != nil {
			return nil, err
		}
		all = append(all, headings...)
	}
	return all, nil
}

// Parse reads an Org-mode document. Headings without an :ID: inside their
// property drawer are skipped.
func Parse(r io.Reader, source string) ([]Heading, error) {
	scanner := bufio.NewScanner(r)
	var headings []Heading
	var current *Heading

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "* ") {
			current = nil
			matches := headingRegex.FindStringSubmatch(line)
			if matches == nil {
				continue
			}
			h := &Heading{Source: source, Status: "pending", Priority: matches[2]}
			if matches[1] == "DONE" {
				h.Status = "completed"
			}
			h.Title = strings.TrimSpace(matches[3])
			if matches[4] != "" {
				h.Tags = strings.Split(strings.Trim(matches[4], ":"), ":")
			}
			current = h
			continue
		}
		if current == nil {
			continue
		}

		if matches := idRegex.FindStringSubmatch(line); matches != nil {
			current.ID = matches[1]
		} else if strings.HasPrefix(line, ":END:") {
			if current.ID != "" && current.Title != "" {
				headings = append(headings, *current)
			}
			current = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return headings, nil
}

// FilterTag keeps the headings tagged with tag.
func FilterTag(headings []Heading, tag string) []Heading {
	var out []Heading
	for _, h := range headings {
		for _, t := range h.Tags {
			if t == tag {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

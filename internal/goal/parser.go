package goal

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

const (
	sectionDescription = "description"
	sectionCriteria    = "criteria"
	sectionQuality     = "quality"
	sectionConstraints = "constraints"
)

// DefaultTitle is used when a document has no top-level heading
const DefaultTitle = "Untitled Goal"

var (
	sectionPatterns = []struct {
		name    string
		pattern *regexp.Regexp
	}{
		{sectionDescription, regexp.MustCompile(`(?i)^##\s*(Beschreibung|Description)\s*$`)},
		{sectionCriteria, regexp.MustCompile(`(?i)^##\s*(Akzeptanzkriterien|Acceptance\s*Criteria)\s*$`)},
		{sectionQuality, regexp.MustCompile(`(?i)^##\s*(Qualit.tsanforderungen|Quality\s*Requirements)\s*$`)},
		{sectionConstraints, regexp.MustCompile(`(?i)^##\s*(Constraints|Einschr.nkungen)\s*$`)},
	}

	checkboxPattern = regexp.MustCompile(`^-\s*\[([ xX])\]\s*(.+)$`)
	listPattern     = regexp.MustCompile(`^-\s+(.+)$`)
)

// ParseFile reads and parses a goal document
func ParseFile(path string) (*Goal, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.NewGoalNotFoundError(path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGoalReadFailed, fmt.Sprintf("failed to read goal file %s", path), err)
	}
	return Parse(string(data))
}

// Parse turns a markdown-style goal document into a Goal.
// Blank content is an error; anything else parses, possibly to an empty goal.
func Parse(content string) (*Goal, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.NewGoalEmptyError()
	}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	g := &Goal{
		Title:      extractTitle(lines),
		RawContent: content,
		Metadata:   map[string]any{},
	}

	current := sectionDescription
	sections := map[string][]string{}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if name := identifySection(trimmed); name != "" {
			current = name
			continue
		}
		if isTitleLine(trimmed) {
			continue
		}
		if trimmed != "" {
			sections[current] = append(sections[current], line)
		}
	}

	g.Description = strings.TrimSpace(strings.Join(sections[sectionDescription], "\n"))
	for _, line := range sections[sectionCriteria] {
		m := checkboxPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		g.addCriterion(strings.TrimSpace(m[2]), strings.EqualFold(m[1], "x"))
	}
	g.QualityRequirements = parseList(sections[sectionQuality])
	g.Constraints = parseList(sections[sectionConstraints])

	return g, nil
}

func isTitleLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "# ") && !strings.HasPrefix(trimmed, "## ")
}

func extractTitle(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isTitleLine(trimmed) {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return DefaultTitle
}

func identifySection(trimmed string) string {
	for _, sp := range sectionPatterns {
		if sp.pattern.MatchString(trimmed) {
			return sp.name
		}
	}
	return ""
}

// parseList keeps `- item` bullets and any other non-heading line verbatim
func parseList(lines []string) []string {
	items := []string{}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := listPattern.FindStringSubmatch(trimmed); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		} else if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			items = append(items, trimmed)
		}
	}
	return items
}

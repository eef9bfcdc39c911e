package patcher

import (
	"regexp"
	"strings"
)

// filePathRegex extracts the file path from a '+++ b/...' line. Paths may
// contain spaces; a tab ends the path.
var filePathRegex = regexp.MustCompile(`(?m)^\+\+\+ b/(?P<path>[^\t\r\n]*)`)

// ExtractPathFromDiff finds the new-side file path in a unified diff.
func ExtractPathFromDiff(content string) string {
	match := filePathRegex.FindStringSubmatch(content)
	if len(match) > 1 {
		return match[1]
	}
	return ""
}

// CountHunks returns the number of hunks in a unified diff or a .rej file.
func CountHunks(content string) int {
	return len(parseDiffToHunks(strings.Split(content, "\n")))
}

// Locate reports, per hunk, the 1-based line in source where the hunk's
// original lines start, or -1 when they cannot be found. Matching ignores
// blank lines and whitespace differences.
func Locate(patch, source string) []int {
	hunks := parseDiffToHunks(strings.Split(patch, "\n"))
	sourceLines := strings.Split(source, "\n")

	starts := make([]int, len(hunks))
	for i, hunk := range hunks {
		starts[i] = matchBlock(sourceLines, getTargetBlock(hunk))
	}
	return starts
}

// getTargetBlock builds a search pattern from a hunk: only context and
// removed lines, which must already exist in the target, skipping blanks.
func getTargetBlock(hunk []string) []string {
	var block []string
	for _, line := range hunk {
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, " ") {
			continue
		}
		if content := line[1:]; strings.TrimSpace(content) != "" {
			block = append(block, content)
		}
	}
	return block
}

// normalizeLineForMatching collapses all whitespace runs to one space.
func normalizeLineForMatching(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// matchBlock finds the original line number where block starts in source,
// comparing whitespace-normalized lines with blank source lines filtered out.
func matchBlock(source, block []string) int {
	if len(block) == 0 {
		return -1
	}

	normalizedBlock := make([]string, len(block))
	for i, line := range block {
		normalizedBlock[i] = normalizeLineForMatching(line)
	}

	var filteredSource []string
	var originalLineNumbers []int
	for i, line := range source {
		if normalized := normalizeLineForMatching(line); normalized != "" {
			filteredSource = append(filteredSource, normalized)
			originalLineNumbers = append(originalLineNumbers, i+1)
		}
	}

	for i := 0; i <= len(filteredSource)-len(normalizedBlock); i++ {
		match := true
		for j := range normalizedBlock {
			if filteredSource[i+j] != normalizedBlock[j] {
				match = false
				break
			}
		}
		if match {
			return originalLineNumbers[i]
		}
	}
	return -1
}

// parseDiffToHunks splits diff lines into hunks. File headers are skipped:
// a "diff " line ends the current hunk and nothing is collected until the
// next "@@".
func parseDiffToHunks(diffLines []string) [][]string {
	var hunks [][]string
	var currentHunk []string
	inHunk := false

	for _, line := range diffLines {
		switch {
		case strings.HasPrefix(line, "@@"):
			if len(currentHunk) > 0 {
				hunks = append(hunks, currentHunk)
			}
			currentHunk = []string{}
			inHunk = true
		case strings.HasPrefix(line, "diff "):
			if len(currentHunk) > 0 {
				hunks = append(hunks, currentHunk)
			}
			currentHunk = nil
			inHunk = false
		case !inHunk:
			continue
		case strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, " "):
			currentHunk = append(currentHunk, line)
		}
	}
	if len(currentHunk) > 0 {
		hunks = append(hunks, currentHunk)
	}
	return hunks
}

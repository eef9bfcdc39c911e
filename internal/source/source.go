package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// SourceProvider reads target root lists and publishes reports.
type SourceProvider struct {
	stdin     io.Reader
	isPiped   func() bool
	readClip  func() (string, error)
	writeClip func(string) error
}

// New creates a SourceProvider bound to os.Stdin and the system clipboard.
func New() *SourceProvider {
	return &SourceProvider{
		stdin:     os.Stdin,
		isPiped:   stdinIsPiped,
		readClip:  clipboard.ReadAll,
		writeClip: clipboard.WriteAll,
	}
}

func stdinIsPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// GetContent retrieves content from stdin (if piped) or the clipboard.
func (sp *SourceProvider) GetContent() (string, error) {
	if sp.isPiped() {
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	content, err := sp.readClip()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return content, nil
}

// GetTargets reads a target root list from stdin or the clipboard.
func (sp *SourceProvider) GetTargets() ([]string, error) {
	content, err := sp.GetContent()
	if err != nil {
		return nil, err
	}
	return ParseTargetList(content), nil
}

// Copy puts text on the system clipboard.
func (sp *SourceProvider) Copy(text string) error {
	if err := sp.writeClip(text); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	return nil
}

// ParseTargetList splits content into target roots, one per line. Blank
// lines and lines starting with # are skipped.
func ParseTargetList(content string) []string {
	var targets []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	return targets
}

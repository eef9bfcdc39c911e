// Package format reformats file content for display. Formatting never fails:
// any error falls back to the input unchanged.
package format

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	goformat "go/format"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/patchsync/internal/normalize"
	"github.com/sokinpui/patchsync/internal/runner"
)

// FilePlaceholder in a command's arguments is replaced by a temporary file
// holding the content. Without it the content is fed on stdin.
const FilePlaceholder = "{file}"

// BinaryPlaceholder replaces content that is not valid UTF-8.
const BinaryPlaceholder = "<Binary or Non-UTF8 Content>"

var staticExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {}, ".svg": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {}, ".mp4": {}, ".webm": {},
	".mp3": {}, ".wav": {}, ".pdf": {}, ".zip": {}, ".tar": {}, ".gz": {},
	".7z": {}, ".rar": {}, ".exe": {}, ".dll": {}, ".so": {}, ".dylib": {},
	".bin": {},
}

var languages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".json": "json",
	".html": "html",
	".css":  "css",
	".ts":   "typescript",
	".java": "java",
	".c":    "c",
	".cpp":  "cpp",
	".xml":  "xml",
	".sql":  "sql",
	".md":   "markdown",
}

// Template literals in these files are normalized before formatting.
var scriptExtensions = map[string]struct{}{
	".js": {}, ".jsx": {}, ".mjs": {}, ".cjs": {}, ".ts": {}, ".tsx": {},
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsStatic reports whether filename has an asset or binary extension.
func IsStatic(filename string) bool {
	_, ok := staticExtensions[ext(filename)]
	return ok
}

// Language maps a file name to a syntax highlighting language.
func Language(filename string) string {
	if lang, ok := languages[ext(filename)]; ok {
		return lang
	}
	return "plaintext"
}

// Formatter rewrites the content of a file named name.
type Formatter interface {
	Format(ctx context.Context, name, content string) (string, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(ctx context.Context, name, content string) (string, error)

func (f FormatterFunc) Format(ctx context.Context, name, content string) (string, error) {
	return f(ctx, name, content)
}

// Go formats Go source with gofmt rules.
var Go = FormatterFunc(func(_ context.Context, _, content string) (string, error) {
	out, err := goformat.Source([]byte(content))
	if err != nil {
		return "", err
	}
	return string(out), nil
})

// JSON re-indents JSON with four spaces.
var JSON = FormatterFunc(func(_ context.Context, _, content string) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(content), "", "    "); err != nil {
		return "", err
	}
	if strings.HasSuffix(content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.String(), nil
})

// Command runs an external formatter such as prettier or autopep8.
type Command struct {
	Runner runner.Runner
	Argv   []string
}

func (c Command) Format(ctx context.Context, name, content string) (string, error) {
	if len(c.Argv) == 0 {
		return "", fmt.Errorf("empty formatter command")
	}

	cmd := runner.Command{Name: c.Argv[0]}
	var tmpFile string
	for _, arg := range c.Argv[1:] {
		if strings.Contains(arg, FilePlaceholder) {
			if tmpFile == "" {
				f, err := os.CreateTemp("", "patchsync-fmt-*"+filepath.Ext(name))
				if err != nil {
					return "", fmt.Errorf("creating temp file: %w", err)
				}
				tmpFile = f.Name()
				defer os.Remove(tmpFile)
				_, werr := f.WriteString(content)
				cerr := f.Close()
				if werr != nil {
					return "", werr
				}
				if cerr != nil {
					return "", cerr
				}
			}
			arg = strings.ReplaceAll(arg, FilePlaceholder, tmpFile)
		}
		cmd.Args = append(cmd.Args, arg)
	}
	if tmpFile == "" {
		cmd.Stdin = []byte(content)
	}

	res, err := c.Runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if res.TimedOut {
		return "", fmt.Errorf("%s timed out after %s", c.Argv[0], res.Timeout)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s exited with status %d: %s", c.Argv[0], res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	if len(res.Stdout) > 0 || tmpFile == "" {
		return string(res.Stdout), nil
	}
	// In-place formatters leave their result in the file.
	out, err := os.ReadFile(tmpFile)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Registry picks a formatter by file extension.
type Registry struct {
	formatters map[string]Formatter
	logger     *zap.Logger
}

// NewRegistry returns a registry with the built-in Go and JSON formatters.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		formatters: map[string]Formatter{
			".go":   Go,
			".json": JSON,
		},
		logger: logger,
	}
}

// Register installs f for extension (with or without the leading dot),
// replacing any existing formatter.
func (r *Registry) Register(extension string, f Formatter) {
	extension = strings.ToLower(extension)
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	r.formatters[extension] = f
}

// RegisterCommands installs an external command for each extension.
func (r *Registry) RegisterCommands(run runner.Runner, commands map[string][]string) {
	for extension, argv := range commands {
		if len(argv) == 0 {
			continue
		}
		r.Register(extension, Command{Runner: run, Argv: argv})
	}
}

// Has reports whether a formatter is registered for filename.
func (r *Registry) Has(filename string) bool {
	_, ok := r.formatters[ext(filename)]
	return ok
}

// Format returns content formatted for filename, or content itself when no
// formatter applies or formatting fails.
func (r *Registry) Format(ctx context.Context, filename, content string) string {
	if content == "" || content == BinaryPlaceholder {
		return content
	}
	e := ext(filename)
	f, ok := r.formatters[e]
	if !ok {
		return content
	}

	input := content
	if _, script := scriptExtensions[e]; script {
		input = normalize.Normalize(input)
	}
	out, err := f.Format(ctx, filename, input)
	if err != nil {
		r.logger.Warn("formatting failed", zap.String("file", filename), zap.Error(err))
		return content
	}
	return out
}

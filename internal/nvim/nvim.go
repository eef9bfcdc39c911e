package nvim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
)

// ErrNoInstance is returned when no running Neovim advertises its socket.
var ErrNoInstance = errors.New("no running neovim instance found")

// client is the subset of *nvim.Nvim the manager uses.
type client interface {
	Buffers() ([]nvim.Buffer, error)
	BufferName(buffer nvim.Buffer) (string, error)
	Command(cmd string) error
	Close() error
}

// Manager handles the connection to a running Neovim instance.
type Manager struct {
	nvim client
}

// socketAddress returns the address of the Neovim instance that spawned
// this process, if any.
func socketAddress() string {
	if addr := os.Getenv("NVIM"); addr != "" {
		return addr
	}
	return os.Getenv("NVIM_LISTEN_ADDRESS")
}

// New connects to the running instance named by $NVIM or
// $NVIM_LISTEN_ADDRESS.
func New() (*Manager, error) {
	addr := socketAddress()
	if addr == "" {
		return nil, ErrNoInstance
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to neovim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
}

// Refresh reloads every open buffer whose file is in paths, so edits a sync
// wrote to disk show up without :e. It returns the paths that were
// reloaded and those whose reload failed.
func (m *Manager) Refresh(paths []string) (reloaded, failed []string) {
	if len(paths) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			wanted[abs] = true
		}
	}

	buffers, err := m.nvim.Buffers()
	if err != nil {
		return nil, paths
	}
	for _, buf := range buffers {
		name, err := m.nvim.BufferName(buf)
		if err != nil || name == "" {
			continue
		}
		if abs, err := filepath.Abs(name); err == nil {
			name = abs
		}
		if !wanted[name] {
			continue
		}
		if err := m.nvim.Command(fmt.Sprintf("checktime %d", int(buf))); err != nil {
			failed = append(failed, name)
			continue
		}
		reloaded = append(reloaded, name)
	}
	return reloaded, failed
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/vburojevic/buildtl/internal/tui"
)

// UICmd launches the live timeline viewer
type UICmd struct {
	Refresh string `help:"Redraw interval (default from ui.refresh)"`
	Reloads bool   `help:"Lay iterations out after their reload"`
	NoWatch bool   `help:"Do not watch storage for writes from hook processes"`
}

// Run executes the UI command
func (c *UICmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ui := globals.Config.UI
	if c.Refresh != "" {
		ui.Refresh = c.Refresh
	}
	refresh, err := ui.RefreshInterval()
	if err != nil {
		return fail(globals, CodeInvalidFlags, err.Error())
	}

	// the viewer owns the terminal; anomalies go to the log only
	quiet := globals.Quiet
	globals.Quiet = true
	h, err := openRecorder(globals)
	globals.Quiet = quiet
	if err != nil {
		return err
	}
	defer h.Close()

	model := tui.New(h, h.StoragePath, refresh, c.Reloads || ui.ShowReloads)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if !c.NoWatch {
		if err := os.MkdirAll(filepath.Dir(h.StoragePath), 0o755); err != nil {
			return fail(globals, CodeStorage, err.Error())
		}
		go func() {
			err := tui.WatchStorage(ctx, h.StoragePath, globals.Logger(), func() {
				p.Send(tui.StorageChangedMsg{})
			})
			if err != nil {
				globals.Logger().Warn("storage watch disabled", zap.Error(err))
			}
		}()
	}

	globals.Debug("Starting viewer on %s", h.StoragePath)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

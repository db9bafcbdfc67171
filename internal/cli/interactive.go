package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/mcp"
	"github.com/julianstephens/cadence/internal/metrics"
	"github.com/julianstephens/cadence/internal/tui"
)

type TuiCmd struct {
	As string `help:"Act as this user id when completing goals (defaults to the current user)."`
}

func (c *TuiCmd) Run(ctx *Context) error {
	ctrl, err := ctx.Controller(context.Background())
	if err != nil {
		return err
	}
	p := tea.NewProgram(tui.NewModel(ctrl, actor(ctx, c.As)), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

type McpCmd struct {
	MetricsAddr string `help:"Serve Prometheus metrics on this address, e.g. :9090." env:"CADENCE_METRICS_ADDR"`
}

func (c *McpCmd) Run(ctx *Context) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, err := ctx.Controller(sigCtx)
	if err != nil {
		return err
	}
	server, err := mcp.NewServer(ctrl)
	if err != nil {
		return err
	}

	if c.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(sigCtx, c.MetricsAddr); err != nil {
				logger.Error("Metrics server failed", "addr", c.MetricsAddr, "error", err)
			}
		}()
	}

	return server.Serve(sigCtx)
}

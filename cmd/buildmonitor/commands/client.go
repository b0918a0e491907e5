package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xsparkiex/buildmonitor/config"
	"github.com/xsparkiex/buildmonitor/crawler"
	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/monitor"
)

// clientPollInterval is how often the client command asks the Monitor
// to drain its transport's latest projects into the cache and render.
const clientPollInterval = 2 * time.Second

func newClientCmd() *cobra.Command {
	var (
		serverAddr string
		localAddr  string
		multicast  bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Watch a build-status server and print its project list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if serverAddr == "" {
				serverAddr = cfg.GroupOrServerAddr
			}
			if localAddr == "" {
				localAddr = cfg.BindAddr
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			m := monitor.New("", crawler.NewJenkinsCrawler(cfg.CrawlerRequestsPerSecond))
			if err := m.StartClient(ctx, serverAddr, localAddr, multicast); err != nil {
				return err
			}
			defer func() {
				if err := m.StopClient(); err != nil {
					logger.Warnw("client: stop failed", "error", err)
				}
			}()

			if !watch {
				return waitForFirstUpdate(ctx, m)
			}

			ticker := time.NewTicker(clientPollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := m.RefreshProjects(ctx); err != nil {
						logger.Warnw("client: refresh failed", "error", err)
						continue
					}
					renderProjects(m)
				}
			}
		},
	}

	cmd.Flags().StringVar(&serverAddr, "server", "", "multicast group or query server address")
	cmd.Flags().StringVar(&localAddr, "bind", "", "local address to bind")
	cmd.Flags().BoolVar(&multicast, "multicast", true, "use multicast push mode instead of unicast query mode")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep polling and re-rendering instead of exiting after the first update")
	return cmd
}

func waitForFirstUpdate(ctx context.Context, m *monitor.Monitor) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed, err := m.RefreshProjects(ctx)
			if err != nil {
				return err
			}
			if changed || m.Cache.Len() > 0 {
				renderProjects(m)
				return nil
			}
		}
	}
}

func renderProjects(m *monitor.Monitor) {
	projects := m.Cache.Snapshot()
	if len(projects) == 0 {
		pterm.Warning.Println("no projects yet")
		return
	}

	tableData := pterm.TableData{{"Folder", "Name", "Status", "Building", "Volunteer"}}
	for _, p := range projects {
		tableData = append(tableData, []string{
			p.Folder, p.Name, statusText(p.Status), boolText(p.IsBuilding), p.Volunteer,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
		logger.Warnw("client: render failed", "error", err)
	}
}

func statusText(s interface{ String() string }) string {
	return s.String()
}

func boolText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

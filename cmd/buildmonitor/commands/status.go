package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xsparkiex/buildmonitor/config"
	"github.com/xsparkiex/buildmonitor/crawler"
	"github.com/xsparkiex/buildmonitor/monitor"
)

// statusQueryWait bounds how long the status command waits for a single
// snapshot before giving up.
const statusQueryWait = 2 * time.Second

func newStatusCmd() *cobra.Command {
	var (
		serverAddr string
		localAddr  string
		multicast  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a one-shot snapshot of a server's project list",
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

			requestID := uuid.New()

			ctx, cancel := context.WithTimeout(cmd.Context(), statusQueryWait)
			defer cancel()

			m := monitor.New("", crawler.NewJenkinsCrawler(cfg.CrawlerRequestsPerSecond))
			if err := m.StartClient(ctx, serverAddr, localAddr, multicast); err != nil {
				return err
			}
			defer func() { _ = m.StopClient() }()

			if err := waitForFirstUpdate(ctx, m); err != nil {
				return err
			}

			projects := m.Cache.Snapshot()
			hashDigits := base58.Encode(uint64ToBytes(m.Cache.ContentHash()))

			pterm.DefaultSection.Printfln("status request %s", requestID.String()[:8])
			pterm.Info.Printfln("content hash %s, %d project(s)", hashDigits, len(projects))
			renderProjects(m)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAddr, "server", "", "multicast group or query server address")
	cmd.Flags().StringVar(&localAddr, "bind", "", "local address to bind")
	cmd.Flags().BoolVar(&multicast, "multicast", true, "use multicast push mode instead of unicast query mode")
	return cmd
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * (7 - i)))
	}
	return b
}

package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/xsparkiex/buildmonitor/config"
	"github.com/xsparkiex/buildmonitor/crawler"
	"github.com/xsparkiex/buildmonitor/errors"
	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/monitor"
	"github.com/xsparkiex/buildmonitor/project"
)

// volunteerDrainWait gives the client transport time to flush the
// VolunteerAdded frame to the server before the process exits.
const volunteerDrainWait = 500 * time.Millisecond

func newVolunteerCmd() *cobra.Command {
	var (
		serverAddr string
		localAddr  string
		multicast  bool
	)

	cmd := &cobra.Command{
		Use:   "volunteer <project-id-or-url>",
		Short: "Claim a broken build as being worked on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveProjectID(args[0])
			if err != nil {
				return err
			}

			cfg, loadErr := config.Load(configPath)
			if loadErr != nil {
				return loadErr
			}
			if serverAddr == "" {
				serverAddr = cfg.GroupOrServerAddr
			}
			if localAddr == "" {
				localAddr = cfg.BindAddr
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), volunteerDrainWait+time.Second)
			defer cancel()

			m := monitor.New("", crawler.NewJenkinsCrawler(cfg.CrawlerRequestsPerSecond))
			if err := m.StartClient(ctx, serverAddr, localAddr, multicast); err != nil {
				return err
			}
			defer func() {
				if err := m.StopClient(); err != nil {
					logger.Warnw("volunteer: stop failed", "error", err)
				}
			}()

			if err := m.SetVolunteering(id); err != nil {
				return errors.Wrap(err, "volunteer: claim failed")
			}

			select {
			case <-ctx.Done():
			case <-time.After(volunteerDrainWait):
			}

			logger.Infow("volunteer: claim sent", "project_id", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAddr, "server", "", "multicast group or query server address")
	cmd.Flags().StringVar(&localAddr, "bind", "", "local address to bind")
	cmd.Flags().BoolVar(&multicast, "multicast", true, "use multicast push mode instead of unicast query mode")
	return cmd
}

// resolveProjectID accepts either a decimal project id or a job URL,
// mirroring how Project.ID is derived in either case.
func resolveProjectID(arg string) (uint64, error) {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return id, nil
	}
	return project.NewID(arg), nil
}

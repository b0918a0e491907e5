package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/xsparkiex/buildmonitor/config"
	"github.com/xsparkiex/buildmonitor/crawler"
	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/monitor"
)

// refreshInterval is how often the server command re-crawls the
// configured root and pushes any change into the cache.
const refreshInterval = 30 * time.Second

func newServerCmd() *cobra.Command {
	var (
		rootURL   string
		bindAddr  string
		groupAddr string
		multicast bool
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Crawl a CI root and advertise build status to peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if rootURL == "" {
				rootURL = cfg.RootURL
			}
			if bindAddr == "" {
				bindAddr = cfg.BindAddr
			}
			if groupAddr == "" {
				groupAddr = cfg.GroupOrServerAddr
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			jc := crawler.NewJenkinsCrawler(cfg.CrawlerRequestsPerSecond)
			m := monitor.New(rootURL, jc)

			if err := m.StartServer(ctx, bindAddr, groupAddr, multicast); err != nil {
				return err
			}
			defer func() {
				if err := m.StopServer(); err != nil {
					logger.Warnw("server: stop failed", "error", err)
				}
			}()

			if configPath != "" {
				w := config.NewWatcher(configPath, func(reloaded config.Config) {
					jc.Limiter.SetLimit(rate.Limit(reloaded.CrawlerRequestsPerSecond))
					logger.Infow("server: applied reloaded config", "crawler_requests_per_second", reloaded.CrawlerRequestsPerSecond)
				})
				if err := w.Start(); err != nil {
					logger.Warnw("server: config watch disabled", "error", err)
				} else {
					defer func() {
						if err := w.Stop(); err != nil {
							logger.Warnw("server: config watcher stop failed", "error", err)
						}
					}()
				}
			}

			if _, err := m.RefreshProjects(ctx); err != nil {
				logger.Warnw("server: initial refresh failed", "error", err)
			}

			ticker := time.NewTicker(refreshInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					logger.Infow("server: shutting down")
					return nil
				case <-ticker.C:
					changed, err := m.RefreshProjects(ctx)
					if err != nil {
						logger.Warnw("server: refresh failed", "error", err)
						continue
					}
					logger.Infow("server: refreshed", "changed", changed, "projects", m.Cache.Len())
				}
			}
		},
	}

	cmd.Flags().StringVar(&rootURL, "root-url", "", "Jenkins root URL to crawl")
	cmd.Flags().StringVar(&bindAddr, "bind", "", "local address to bind")
	cmd.Flags().StringVar(&groupAddr, "group", "", "multicast group (multicast mode) or unused (query mode)")
	cmd.Flags().BoolVar(&multicast, "multicast", true, "use multicast push mode instead of unicast query mode")
	return cmd
}

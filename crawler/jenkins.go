package crawler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xsparkiex/buildmonitor/errors"
	"github.com/xsparkiex/buildmonitor/logger"
	"github.com/xsparkiex/buildmonitor/project"
)

const (
	folderClass    = "com.cloudbees.hudson.plugins.folder.Folder"
	freestyleClass = "hudson.model.FreeStyleProject"
)

// JenkinsCrawler performs a breadth-first walk of a Jenkins folder tree
// over its REST API, collecting every freestyle-style job it finds as a
// Project with a best-effort refreshed status.
//
// It is deliberately kept outside the core sync engine: the Monitor only
// ever talks to the Crawler interface, never to JenkinsCrawler directly.
type JenkinsCrawler struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewJenkinsCrawler returns a crawler throttled to requestsPerSec
// outbound requests per second, with a burst of int(requestsPerSec)+1.
// A non-positive rate falls back to 5 requests per second.
func NewJenkinsCrawler(requestsPerSec float64) *JenkinsCrawler {
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}
	return &JenkinsCrawler{
		Client:  &http.Client{Timeout: 10 * time.Second},
		Limiter: rate.NewLimiter(rate.Limit(requestsPerSec), int(requestsPerSec)+1),
	}
}

// folderItem mirrors the subset of Jenkins' /api/json folder response
// this crawler needs.
type folderItem struct {
	Class    string `json:"_class"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Buildable *bool   `json:"buildable"`
}

type folderResponse struct {
	Items []folderItem `json:"items"`
}

type buildResponse struct {
	Building          bool     `json:"building"`
	Result            string   `json:"result"`
	Duration          uint64   `json:"duration"`
	EstimatedDuration uint64   `json:"estimatedDuration"`
	Timestamp         uint64   `json:"timestamp"`
	Culprits          []struct {
		FullName string `json:"fullName"`
	} `json:"culprits"`
}

type successfulBuildResponse struct {
	Timestamp uint64 `json:"timestamp"`
}

// Fetch walks rootURL breadth-first, descending into Folder items and
// collecting freestyle jobs as Projects.
func (c *JenkinsCrawler) Fetch(ctx context.Context, rootURL string) ([]project.Project, error) {
	var out []project.Project
	queue := []string{rootURL}

	for len(queue) > 0 {
		folderURL := queue[0]
		queue = queue[1:]

		resp, err := c.getFolder(ctx, folderURL)
		if err != nil {
			return nil, errors.Wrapf(err, "crawler: fetch folder %s", folderURL)
		}

		for _, item := range resp.Items {
			switch item.Class {
			case folderClass:
				queue = append(queue, item.URL)
			case freestyleClass:
				name := item.Name
				folder := folderName(rootURL, folderURL)
				p := project.New(item.URL, name, folder)
				c.refreshStatus(ctx, &p, item.Buildable)
				out = append(out, p)
			}
		}
	}

	return out, nil
}

func (c *JenkinsCrawler) getFolder(ctx context.Context, folderURL string) (folderResponse, error) {
	var resp folderResponse
	if err := c.getJSON(ctx, strings.TrimRight(folderURL, "/")+"/api/json", &resp); err != nil {
		return folderResponse{}, err
	}
	return resp, nil
}

// refreshStatus mirrors the original crawler's per-job refresh: a
// disabled job short-circuits without a build-time fetch; otherwise the
// latest build and the last successful build are consulted, and while
// the latest build is still running the status is taken from the last
// completed build instead.
func (c *JenkinsCrawler) refreshStatus(ctx context.Context, p *project.Project, buildable *bool) {
	if buildable != nil && !*buildable {
		p.Status = project.StatusDisabled
		p.IsBuilding = false
		return
	}

	var lastBuild buildResponse
	if err := c.getJSON(ctx, strings.TrimRight(p.URL, "/")+"/lastBuild/api/json", &lastBuild); err != nil {
		logger.Warnw("crawler: job has no builds yet", "url", p.URL, "error", err)
		p.Status = project.StatusNotBuilt
		return
	}

	p.IsBuilding = lastBuild.Building
	p.Duration = lastBuild.Duration
	p.EstimatedDuration = lastBuild.EstimatedDuration
	p.Timestamp = lastBuild.Timestamp
	p.Culprits = p.Culprits[:0]
	for _, culprit := range lastBuild.Culprits {
		p.Culprits = append(p.Culprits, culprit.FullName)
	}

	var successful successfulBuildResponse
	if err := c.getJSON(ctx, strings.TrimRight(p.URL, "/")+"/lastSuccessfulBuild/api/json", &successful); err == nil {
		p.LastSuccessfulBuildTime = successful.Timestamp
	}

	if p.IsBuilding {
		var completed buildResponse
		if err := c.getJSON(ctx, strings.TrimRight(p.URL, "/")+"/lastCompletedBuild/api/json", &completed); err == nil {
			p.Status = resultToStatus(completed.Result)
		} else {
			p.Status = project.StatusUnknown
		}
		return
	}

	p.Status = resultToStatus(lastBuild.Result)
}

func resultToStatus(result string) project.Status {
	switch result {
	case "SUCCESS":
		return project.StatusSuccess
	case "UNSTABLE":
		return project.StatusUnstable
	case "FAILURE":
		return project.StatusFailed
	case "ABORTED":
		return project.StatusAborted
	case "NOT_BUILT":
		return project.StatusNotBuilt
	default:
		return project.StatusUnknown
	}
}

func (c *JenkinsCrawler) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "crawler: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "crawler: build request")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "crawler: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.Newf("crawler: %s not found", url)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("crawler: %s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "crawler: malformed json")
	}
	return nil
}

// folderName derives the display folder by trimming the root prefix off
// a job's containing folder URL.
func folderName(rootURL, folderURL string) string {
	trimmed := strings.TrimPrefix(strings.TrimRight(folderURL, "/"), strings.TrimRight(rootURL, "/"))
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

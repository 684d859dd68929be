package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// CheckRobots performs a one-shot robots.txt check for the base host before
// a run starts. The tool only ever talks to one host, so there is no need
// for the usual per-host robots cache.
//
// Fail-open semantics: a missing robots.txt or a fetch failure allows the
// run (robotstxt treats 404 as allow-all); only an explicit Disallow for
// the listing path blocks it.
func CheckRobots(ctx context.Context, client *http.Client, listingURL *url.URL, userAgent string, log *logrus.Entry) (bool, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", listingURL.Scheme, listingURL.Host)
	robotsLog := log.WithField("robots_url", robotsURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		robotsLog.Warnf("Could not fetch robots.txt, proceeding: %v", err)
		return true, nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		robotsLog.Warnf("Could not parse robots.txt, proceeding: %v", err)
		return true, nil
	}

	group := data.FindGroup(userAgent)
	allowed := group.Test(listingURL.RequestURI())
	if !allowed {
		robotsLog.Warnf("robots.txt disallows '%s' for agent '%s'", listingURL.RequestURI(), userAgent)
	} else {
		robotsLog.Debug("robots.txt check passed")
	}
	return allowed, nil
}

package crawler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gowgit/site-crawler/pkg/fetch"
	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/parse"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// fetch GETs u, resolving redirects under policy, and returns the final body.
// Only an invalid u is returned as an error; any other failure is logged, recorded on
// the Response and yields "". The crawl bookkeeping on u and lastResponse is always updated.
func (c *Crawler) fetch(ctx context.Context, u *models.URL, policy RedirectPolicy) (html string, err error) {
	resp := models.NewResponse()
	defer func() {
		u.SetCrawled(true)
		u.CrawlDuration = resp.TotalTime
		c.lastResponse = resp
	}()

	if !parse.IsValid(u.Raw) {
		resp.Err = fmt.Errorf("%w: %q", utils.ErrInvalidURL, u.Raw)
		return "", resp.Err
	}

	if err := c.resolve(ctx, u, resp, policy); err != nil {
		resp.Err = err
		c.log.WithFields(logrus.Fields{
			"url":        u.Raw,
			"error_type": utils.CategorizeError(err),
		}).Debugf("Fetch failed: %v", err)
		return "", nil
	}
	return resp.BodyOrEmpty(), nil
}

// resolve GETs u and follows redirects until a non-3xx response, enriching resp on every hop.
// u is replaced in place by each redirect target. Scope checks compare against the base of u
// as it was before the first hop.
func (c *Crawler) resolve(ctx context.Context, u *models.URL, resp *models.Response, policy RedirectPolicy) error {
	origBase := parse.ToBase(u.Raw)
	scope, scoped := policy.scope()

	for {
		if err := c.getResponse(ctx, u, resp); err != nil {
			return err
		}
		if !resp.IsRedirect() {
			return nil
		}

		location := strings.TrimSpace(resp.Location())
		if location == "" {
			return fmt.Errorf("%w: %d from %s", utils.ErrRedirectWithoutLocation, resp.Status, u.Raw)
		}
		if strings.HasPrefix(location, "//") {
			location = currentScheme(u.Raw) + ":" + location
		}

		if !policy.follows() {
			return fmt.Errorf("%w: %s", utils.ErrRedirectNotAllowed, location)
		}
		if scoped {
			within, err := parse.IsRelativeTo(scope, location, origBase)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", utils.ErrRedirectOutOfScope, location, err)
			}
			if !within {
				return fmt.Errorf("%w: outside of %s: %s", utils.ErrRedirectOutOfScope, scope, location)
			}
		}
		if resp.RedirectCount() >= c.RedirectLimit {
			return fmt.Errorf("%w: exceeded %d", utils.ErrTooManyRedirects, c.RedirectLimit)
		}

		target := location
		if parse.IsRelativeURL(location) {
			target = parse.Concat(parse.ToBase(u.Raw), location)
		}
		resp.AddRedirection(u.Raw, target)
		u.Replace(target)
	}
}

// getResponse performs one GET of u and merges the result into resp
func (c *Crawler) getResponse(ctx context.Context, u *models.URL, resp *models.Response) error {
	origURL := u.Raw
	target := origURL
	if normalized, _, err := parse.ParseAndNormalize(origURL); err == nil {
		target = normalized
	}

	res, err := c.fetcher.Get(ctx, target, fetch.RequestOptions{
		Timeout:   c.TimeOut,
		UserAgent: c.UserAgent,
	})

	resp.URL = origURL
	resp.Status = 0
	resp.Body = nil
	resp.IPAddress = ""
	resp.Headers = make(http.Header)
	if res != nil {
		resp.Status = res.Status
		if res.Headers != nil {
			resp.Headers = res.Headers
		}
		resp.Body = res.Body
		resp.IPAddress = res.IPAddress
		resp.AddTotalTime(res.Elapsed)
	}

	c.logHTTP(resp)

	if err != nil {
		if errors.Is(err, utils.ErrNoResponse) {
			return err
		}
		return fmt.Errorf("%w: %w", utils.ErrNoResponse, err)
	}
	if resp.IsFailure() {
		return fmt.Errorf("%w (within timeout: %s)", utils.ErrNoResponse, c.TimeOut)
	}
	return nil
}

// logHTTP logs the request and response of the latest hop at debug level
func (c *Crawler) logHTTP(resp *models.Response) {
	if !c.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	secs := math.Trunc(resp.TotalTime.Seconds()*1000) / 1000
	c.log.Debugf("[http] Request: %s", resp.URL)
	c.log.Debugf("[http] Response: %d (%d bytes in %s seconds)", resp.Status, resp.Size(), strconv.FormatFloat(secs, 'f', -1, 64))
}

func currentScheme(raw string) string {
	if i := strings.Index(raw, "://"); i > 0 {
		return strings.ToLower(raw[:i])
	}
	return "http"
}

package aula

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	// maxLoginHops bounds the identity-provider form chain. The chain has no
	// fixed number of steps; ten form submissions has always been enough.
	maxLoginHops = 10

	// maxVersionProbes bounds the 410-driven API version walk so a portal
	// that retires every version cannot hang the login.
	maxVersionProbes = 25

	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/112.0"
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
)

// loginOutcome is the terminal state of the form chain.
type loginOutcome int

const (
	loginExhausted loginOutcome = iota
	loginSucceeded
)

// login runs the full ceremony: fresh transport session, entry-point form,
// IdP selection, bounded form chain, then API version negotiation. On success
// the client's API base URL and profile store are populated. Callers hold the
// client mutex.
func (c *Client) login(ctx context.Context) error {
	log.Printf("aula: logging in as %s", c.username)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	c.httpClient = &http.Client{Jar: jar, Timeout: 60 * time.Second}
	c.apiURL = ""
	c.profiles = nil
	c.childIDs = nil

	resp, err := c.browserGet(ctx, c.endpoints.LoginURL+"?type=unilogin")
	if err != nil {
		return fmt.Errorf("failed to reach login entry point: %w", err)
	}
	action, _, err := parseFormResponse(resp)
	if err != nil {
		return fmt.Errorf("failed to parse login entry form: %w", err)
	}

	resp, err = c.postForm(ctx, action, url.Values{"selectedIdp": {"uni_idp"}})
	if err != nil {
		return fmt.Errorf("failed to select identity provider: %w", err)
	}

	outcome, err := c.followLoginForms(ctx, resp)
	if err != nil {
		return err
	}
	if outcome != loginSucceeded {
		log.Printf("aula: gave up after %d login hops", maxLoginHops)
		return ErrLoginFailed
	}

	return c.negotiateAPIVersion(ctx)
}

// followLoginForms walks the IdP form chain: scrape the current page's form,
// overlay the credential fields and repost until the final URL is the portal
// landing page or the hop budget runs out.
func (c *Client) followLoginForms(ctx context.Context, resp *http.Response) (loginOutcome, error) {
	overlay := url.Values{
		"username":        {c.username},
		"password":        {c.password},
		"selected-aktoer": {"KONTAKT"},
	}

	for hop := 0; hop < maxLoginHops; hop++ {
		action, fields, err := parseFormResponse(resp)
		if err != nil {
			return loginExhausted, fmt.Errorf("failed to parse login form (hop %d): %w", hop, err)
		}
		// Credential fields always replace scraped fields of the same name.
		for key, values := range overlay {
			fields[key] = values
		}
		resp, err = c.postForm(ctx, action, fields)
		if err != nil {
			return loginExhausted, fmt.Errorf("login form post failed (hop %d): %w", hop, err)
		}
		if resp.Request.URL.String() == c.endpoints.PortalURL {
			drain(resp)
			return loginSucceeded, nil
		}
	}
	drain(resp)
	return loginExhausted, nil
}

// negotiateAPIVersion probes profiles.getProfilesByLogin starting at the
// configured version: 410 means the version was retired, so bump and retry;
// 403 is a credential rejection; 200 fixes the API base URL for the session
// and seeds the profile store.
func (c *Client) negotiateAPIVersion(ctx context.Context) error {
	version := c.endpoints.StartVersion
	for probe := 0; probe < maxVersionProbes; probe++ {
		apiURL := fmt.Sprintf("%s/v%d", c.endpoints.APIBase, version)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?method=profiles.getProfilesByLogin", nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("api probe failed: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusGone:
			drain(resp)
			version++
		case http.StatusForbidden:
			drain(resp)
			return ErrAccessDenied
		case http.StatusOK:
			var profiles profilesResponse
			err := json.NewDecoder(resp.Body).Decode(&profiles)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to decode profile list: %w", err)
			}
			c.apiURL = apiURL
			c.setProfiles(profiles.Data.Profiles)
			log.Printf("aula: login successful, api at %s", c.apiURL)
			return nil
		default:
			status := resp.StatusCode
			drain(resp)
			return fmt.Errorf("%w: unexpected status %d probing %s", ErrAPIUnreachable, status, apiURL)
		}
	}
	return fmt.Errorf("%w: no working version after %d probes", ErrAPIUnreachable, maxVersionProbes)
}

func (c *Client) browserGet(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	return c.httpClient.Do(req)
}

func (c *Client) postForm(ctx context.Context, action string, fields url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.httpClient.Do(req)
}

// parseFormResponse scrapes the form out of a response body and resolves the
// action URL against the page it came from.
func parseFormResponse(resp *http.Response) (string, url.Values, error) {
	defer resp.Body.Close()
	action, fields, err := parseForm(resp.Body)
	if err != nil {
		return "", nil, err
	}
	resolved, err := resp.Request.URL.Parse(action)
	if err != nil {
		return "", nil, fmt.Errorf("bad form action %q: %w", action, err)
	}
	return resolved.String(), fields, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Package version reports the build version and checks for newer releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// Version is set at build time with -ldflags "-X ...version.Version=v1.2.3".
var Version = "v0.0.0"

const DefaultReleaseURL = "https://api.github.com/repos/nulzo/chat-router/releases/latest"

type release struct {
	TagName string `json:"tag_name"`
}

// Update describes a newer published release.
type Update struct {
	Current string
	Latest  string
}

func (u Update) String() string {
	return fmt.Sprintf("running %s, latest release is %s", u.Current, u.Latest)
}

// Checker compares the running version with the latest published release.
type Checker struct {
	URL     string
	Current string
	Client  *http.Client
}

func NewChecker() *Checker {
	return &Checker{
		URL:     DefaultReleaseURL,
		Current: Version,
		Client:  &http.Client{Timeout: 2 * time.Second},
	}
}

// Check returns a non-nil Update when a newer release exists.
func (c *Checker) Check(ctx context.Context) (*Update, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release lookup: unexpected status %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("release lookup: %w", err)
	}

	current, err := goversion.NewVersion(c.Current)
	if err != nil {
		return nil, fmt.Errorf("current version %q: %w", c.Current, err)
	}
	latest, err := goversion.NewVersion(rel.TagName)
	if err != nil {
		return nil, fmt.Errorf("latest version %q: %w", rel.TagName, err)
	}

	if current.LessThan(latest) {
		return &Update{Current: c.Current, Latest: rel.TagName}, nil
	}
	return nil, nil
}

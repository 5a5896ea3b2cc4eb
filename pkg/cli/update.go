package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/pkg/errors"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

// Version is set at build time with -ldflags "-X .../pkg/cli.Version=1.2.3".
var Version = "0.0.0-dev"

// Repo is the GitHub repository releases are fetched from.
const Repo = "Fepozopo/imgcow"

type ghRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

var semverRe = regexp.MustCompile(`v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?`)

// latestRelease picks the highest published, non-prerelease version. Tags
// that carry no semver are matched against the release name instead. ok is
// false when nothing qualifies.
func latestRelease(releases []ghRelease) (rel *selfupdate.Release, ok bool) {
	type candidate struct {
		ver   semver.Version
		asset string
	}
	var cands []candidate
	for _, r := range releases {
		if r.Draft || r.Prerelease {
			continue
		}
		m := semverRe.FindString(r.TagName)
		if m == "" {
			m = semverRe.FindString(r.Name)
		}
		v, err := semver.Parse(strings.TrimPrefix(m, "v"))
		if m == "" || err != nil {
			continue
		}
		asset := ""
		for _, a := range r.Assets {
			n := strings.ToLower(a.Name)
			if strings.Contains(n, "linux") || strings.Contains(n, "darwin") || strings.Contains(n, "windows") ||
				strings.Contains(n, "amd64") || strings.Contains(n, "arm64") {
				asset = a.BrowserDownloadURL
				break
			}
			if asset == "" {
				asset = a.BrowserDownloadURL
			}
		}
		cands = append(cands, candidate{v, asset})
	}
	if len(cands) == 0 {
		return nil, false
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].ver.GT(cands[j].ver) })
	return &selfupdate.Release{Version: cands[0].ver, AssetURL: cands[0].asset}, true
}

// fetchReleases lists the releases of repo through the GitHub API.
func fetchReleases(ctx context.Context, repo string) ([]ghRelease, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/repos/"+repo+"/releases", nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "github API request")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read github response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("github API returned status %d: %s", resp.StatusCode, body)
	}
	var releases []ghRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, errors.Wrap(err, "decode github releases")
	}
	return releases, nil
}

// CheckForUpdates compares Version with the latest release and, after the
// user confirms, replaces the running binary.
func CheckForUpdates(ctx context.Context, p *Prompter, out io.Writer) error {
	fmt.Fprintf(out, "Current version: %s\n", Version)
	releases, err := fetchReleases(ctx, Repo)
	if err != nil {
		return errors.Wrap(err, "update check")
	}
	latest, ok := latestRelease(releases)
	if !ok {
		fmt.Fprintf(out, "No releases found for %s.\n", Repo)
		return nil
	}
	fmt.Fprintf(out, "Latest version: %s\n", latest.Version)

	current, err := semver.Parse(strings.TrimPrefix(Version, "v"))
	if err != nil {
		fmt.Fprintf(out, "warning: could not parse current version %q: %v\n", Version, err)
	} else if !latest.Version.GT(current) {
		fmt.Fprintf(out, "You are already running the latest version: %s.\n", current)
		return nil
	}
	if latest.AssetURL == "" {
		fmt.Fprintf(out, "Version %s is available but has no downloadable asset; see https://github.com/%s/releases\n", latest.Version, Repo)
		return nil
	}

	answer, err := p.Line(fmt.Sprintf("A new version (%s) is available. Update now? (y/N): ", latest.Version))
	if err != nil {
		return errors.Wrap(err, "read answer")
	}
	if a := strings.ToLower(answer); a != "y" && a != "yes" {
		fmt.Fprintln(out, "Update cancelled.")
		return nil
	}
	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, "locate executable")
	}
	fmt.Fprintln(out, "Updating...")
	if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
		return errors.Wrap(err, "update")
	}
	fmt.Fprintf(out, "Updated to %s. Restart imgcow to use it.\n", latest.Version)
	return nil
}

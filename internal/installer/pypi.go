package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/mod/semver"

	"github.com/andrejvysny/open-webui-desktop/internal/appinfo"
)

// PackageUpdate describes the installed vs published server package versions.
type PackageUpdate struct {
	Installed       string `json:"installed"`
	Latest          string `json:"latest"`
	UpdateAvailable bool   `json:"update_available"`
}

// CheckPackageUpdate compares the installed server package against the
// package index.
func (m *Manager) CheckPackageUpdate(ctx context.Context) (*PackageUpdate, error) {
	installed, err := m.PackageVersion(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := m.pypiFunc(ctx, m.pkg)
	if err != nil {
		return nil, err
	}

	return &PackageUpdate{
		Installed:       installed,
		Latest:          latest,
		UpdateAvailable: versionLess(installed, latest),
	}, nil
}

// versionLess reports whether current is older than latest. Versions the
// semver package cannot parse compare as plain strings so exotic python
// version tags still produce a stable answer.
func versionLess(current, latest string) bool {
	c, l := ensureVPrefix(current), ensureVPrefix(latest)
	if semver.IsValid(c) && semver.IsValid(l) {
		return semver.Compare(c, l) < 0
	}
	return current != latest
}

func ensureVPrefix(version string) string {
	if len(version) > 0 && version[0] != 'v' {
		return "v" + version
	}
	return version
}

// fetchPyPIVersion returns the latest published version of a package on PyPI.
func fetchPyPIVersion(ctx context.Context, client *http.Client, pkg string) (string, error) {
	url := fmt.Sprintf("https://pypi.org/pypi/%s/json", pkg)

	reqCtx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", appinfo.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query package index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("package index returned status %d for %s", resp.StatusCode, pkg)
	}

	var payload struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode package index response: %w", err)
	}
	return payload.Info.Version, nil
}

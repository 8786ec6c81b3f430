package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/appinfo"
)

const (
	// uvRepo is the upstream repository providing uv release binaries.
	uvRepo = "astral-sh/uv"

	downloadTimeout = 5 * time.Minute
	apiTimeout      = 15 * time.Second
)

// Release is a GitHub release with its downloadable assets.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is a single downloadable release artifact.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// InstallRuntime makes the python runtime available: it downloads the uv
// binary for this platform into the data directory when missing, then asks
// uv to provision a managed interpreter. Safe to call repeatedly.
func (m *Manager) InstallRuntime(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uv, err := m.uvBinary()
	if err != nil {
		uv, err = m.downloadUV(ctx)
		if err != nil {
			return err
		}
	}

	m.logger.Info("Provisioning managed python interpreter")
	if out, err := m.run(ctx, m.dataDir, nil, uv, "python", "install"); err != nil {
		return fmt.Errorf("uv python install: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (m *Manager) downloadUV(ctx context.Context) (string, error) {
	assetName, err := uvAssetName()
	if err != nil {
		return "", err
	}

	release, err := m.releaseFunc(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to look up uv release: %w", err)
	}

	var asset *Asset
	for i := range release.Assets {
		if release.Assets[i].Name == assetName {
			asset = &release.Assets[i]
			break
		}
	}
	if asset == nil {
		return "", fmt.Errorf("uv release %s has no asset %s", release.TagName, assetName)
	}

	m.logger.Info("Downloading uv",
		zap.String("version", release.TagName),
		zap.String("asset", asset.Name))

	archive, err := downloadToTemp(ctx, m.httpClient, asset.BrowserDownloadURL, asset.Name)
	if err != nil {
		return "", err
	}
	defer os.Remove(archive)

	if err := os.MkdirAll(m.binDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create bin directory: %w", err)
	}

	dest := filepath.Join(m.binDir(), uvExecName())
	if strings.HasSuffix(asset.Name, ".zip") {
		err = extractZipFile(archive, uvExecName(), dest)
	} else {
		err = extractTarGzFile(archive, uvExecName(), dest)
	}
	if err != nil {
		return "", fmt.Errorf("failed to extract uv: %w", err)
	}

	m.logger.Info("Installed uv", zap.String("path", dest))
	return dest, nil
}

// uvAssetName maps the current platform to the uv release asset name.
func uvAssetName() (string, error) {
	var target string
	switch runtime.GOOS {
	case "linux":
		switch runtime.GOARCH {
		case "amd64":
			target = "x86_64-unknown-linux-gnu"
		case "arm64":
			target = "aarch64-unknown-linux-gnu"
		}
	case "darwin":
		switch runtime.GOARCH {
		case "amd64":
			target = "x86_64-apple-darwin"
		case "arm64":
			target = "aarch64-apple-darwin"
		}
	case "windows":
		switch runtime.GOARCH {
		case "amd64":
			target = "x86_64-pc-windows-msvc"
		case "arm64":
			target = "aarch64-pc-windows-msvc"
		}
	}
	if target == "" {
		return "", fmt.Errorf("no uv build for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	if runtime.GOOS == "windows" {
		return "uv-" + target + ".zip", nil
	}
	return "uv-" + target + ".tar.gz", nil
}

// fetchLatestRelease queries the GitHub API for the latest stable release.
func fetchLatestRelease(ctx context.Context, client *http.Client, repo string) (*Release, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", repo)

	reqCtx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", appinfo.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release: %w", err)
	}
	return &release, nil
}

func downloadToTemp(ctx context.Context, client *http.Client, url, name string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", appinfo.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download of %s returned status %d", name, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "owd-"+name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// extractTarGzFile writes the first archive entry whose basename matches
// wantBase to dest with the executable bit set.
func extractTarGzFile(archive, wantBase, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg || filepath.Base(hdr.Name) != wantBase {
			continue
		}
		return writeExecutable(dest, tr)
	}
	return fmt.Errorf("%s not found in archive", wantBase)
}

func extractZipFile(archive, wantBase, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || filepath.Base(entry.Name) != wantBase {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return err
		}
		err = writeExecutable(dest, rc)
		rc.Close()
		return err
	}
	return fmt.Errorf("%s not found in archive", wantBase)
}

func writeExecutable(dest string, r io.Reader) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

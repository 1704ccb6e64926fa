package images

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/alexflint/go-filemutex"
	"github.com/charmbracelet/log"
)

const (
	tagsURL         = "https://hub.docker.com/v2/repositories/library/%s/tags?page_size=100&page=%d"
	tagPages        = 3
	refreshInterval = 24 * time.Hour
)

var slimTagRegex = regexp.MustCompile(`^(\d+\.\d+\.\d+)-slim$`)

var httpClient = &http.Client{Timeout: 10 * time.Second}

type tagsResponse struct {
	Results []struct {
		Name string `json:"name"`
	} `json:"results"`
	Next string `json:"next"`
}

// Refresh extends the catalog with versions currently published to the
// registry. The tag list is cached on disk and shared between processes, so
// concurrent invocations refresh at most once per interval. Failures keep the
// built-in catalog; the refresh is best effort.
func (c *Catalog) Refresh(runtime string) {
	cacheDir, err := tagCacheDir()
	if err != nil {
		log.Debugf("Skipping image tag refresh: %v", err)
		return
	}

	cachePath := filepath.Join(cacheDir, runtime+"-tags.json")

	m, err := filemutex.New(cachePath + ".lock")
	if err != nil {
		log.Debugf("Skipping image tag refresh: %v", err)
		return
	}
	defer m.Close()

	if err := m.Lock(); err != nil {
		log.Debugf("Skipping image tag refresh: %v", err)
		return
	}
	defer func() {
		if err := m.Unlock(); err != nil {
			log.Debugf("Failed to unlock tag cache: %v", err)
		}
	}()

	versions, err := readTagCache(cachePath)
	if err != nil {
		versions, err = fetchVersions(runtime)
		if err != nil {
			log.Debugf("Failed to fetch %s tags: %v", runtime, err)
			return
		}

		if data, err := json.Marshal(versions); err == nil {
			if err := os.WriteFile(cachePath, data, 0644); err != nil {
				log.Debugf("Failed to write tag cache: %v", err)
			}
		}
	}

	for _, v := range versions {
		c.addVersion(runtime, v)
	}
}

func tagCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}

	dir := filepath.Join(base, "slipway")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func readTagCache(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if time.Since(info.ModTime()) > refreshInterval {
		return nil, fmt.Errorf("tag cache is stale")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var versions []string
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func fetchVersions(runtime string) ([]string, error) {
	var versions []string

	for page := 1; page <= tagPages; page++ {
		resp, err := httpClient.Get(fmt.Sprintf(tagsURL, runtime, page))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}

		var tags tagsResponse
		err = json.NewDecoder(resp.Body).Decode(&tags)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		for _, tag := range tags.Results {
			if matches := slimTagRegex.FindStringSubmatch(tag.Name); matches != nil {
				versions = append(versions, matches[1])
			}
		}

		if tags.Next == "" {
			break
		}
	}

	if len(versions) == 0 {
		return nil, fmt.Errorf("no version tags found")
	}

	return versions, nil
}

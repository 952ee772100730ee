package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when an asset does not exist in the store.
var ErrNotFound = errors.New("asset not found")

// Store opens assets by the references a Resolver produces.
type Store interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// NewStore returns an HTTPStore for http(s) locations and an FSStore rooted
// at the directory otherwise.
func NewStore(location string) Store {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPStore(location)
	}
	if location == "" {
		location = "."
	}
	return NewFSStore(afero.NewBasePathFs(afero.NewOsFs(), location))
}

// FSStore serves assets from an afero filesystem.
type FSStore struct {
	fs afero.Fs
}

func NewFSStore(fs afero.Fs) *FSStore {
	return &FSStore{fs: fs}
}

func (s *FSStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	f, err := s.fs.Open(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, err
	}
	return f, nil
}

// LocalPath reports where ref lives on the host filesystem, when the store is
// backed by one.
func (s *FSStore) LocalPath(ref string) (string, bool) {
	bp, ok := s.fs.(*afero.BasePathFs)
	if !ok {
		return "", false
	}
	p, err := bp.RealPath(ref)
	if err != nil {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// HTTPStore fetches assets from a static web deployment.
type HTTPStore struct {
	httpClient *http.Client
	baseURL    string
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *HTTPStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	u, err := url.Parse(s.baseURL + ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "busysim")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode >= 400 {
		defer res.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		msg := strings.TrimSpace(string(body))
		if res.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("asset fetch error (%d): %s", res.StatusCode, msg)
	}

	return res.Body, nil
}

// Localizer is implemented by stores that can hand out host paths.
type Localizer interface {
	LocalPath(ref string) (string, bool)
}

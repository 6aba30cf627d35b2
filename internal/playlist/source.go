package playlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"avplay/internal/filesystem"
)

// ErrUnknownEncoding is returned for character encodings that have no
// WHATWG name or alias.
var ErrUnknownEncoding = errors.New("unknown character encoding")

// maxRemoteSize caps the body read from a playlist URL.
const maxRemoteSize = 32 << 20

// DefaultFetchTimeout bounds remote fetches when the caller's client has no
// timeout of its own.
const DefaultFetchTimeout = 30 * time.Second

var defaultClient = &http.Client{Timeout: DefaultFetchTimeout}

// lookupEncoding resolves an encoding name such as "utf-8", "latin1" or
// "windows-1252". The empty name means UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

func decodeText(data []byte, encName string) (string, error) {
	enc, err := lookupEncoding(encName)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", encName, err)
	}
	return strings.TrimPrefix(string(out), bom), nil
}

func encodeText(text, encName string) ([]byte, error) {
	enc, err := lookupEncoding(encName)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", encName, err)
	}
	return out, nil
}

// fetchText reads a local file or an http(s) URL and decodes it.
func fetchText(ctx context.Context, source, encName string, client *http.Client) (string, error) {
	var (
		data []byte
		err  error
	)
	if IsURL(source) {
		data, err = fetchRemote(ctx, source, client)
	} else {
		data, err = filesystem.ReadFileWithRetry(source, filesystem.DefaultRetryConfig())
	}
	if err != nil {
		return "", err
	}
	return decodeText(data, encName)
}

func fetchRemote(ctx context.Context, url string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = defaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxRemoteSize {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, maxRemoteSize)
	}
	return data, nil
}

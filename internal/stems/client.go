// Package stems talks to the stem separation service: upload a mix,
// poll the job, download the finished archive of per-stem WAV files.
package stems

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

// ErrJobTimeout means the separation job did not finish within the poll bound.
var ErrJobTimeout = errors.New("stems: separation job timed out")

const (
	pollAttempts = 60
	pollInterval = 2 * time.Second
)

// Client is a stem separation API client.
type Client struct {
	apiURL string
	http   *http.Client
}

// NewClient creates a stem separation client.
func NewClient(apiURL string) *Client {
	return &Client{
		apiURL: apiURL,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// StemBlob is one extracted stem from the finished archive.
type StemBlob struct {
	Name string // archive entry base name, e.g. "vocals.wav"
	Data []byte
}

type uploadResp struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

type pollResp struct {
	Status int    `json:"status"` // 0 with URL = done, anything else = running
	URL    string `json:"url"`
}

// Upload submits the mix for separation and returns the job id.
func (c *Client) Upload(ctx context.Context, fileName string, wav []byte, stemCount int) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.WriteField("stems", strconv.Itoa(stemCount)); err != nil {
		return "", fmt.Errorf("write stems field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/upload", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload mix: %w", err)
	}
	defer resp.Body.Close()

	var result uploadResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("upload rejected: %s", result.Error)
	}
	return result.JobID, nil
}

// PollUntilDone polls the job until it reports done, returning the
// archive download URL. Bounded to 60 attempts at 2s intervals.
func (c *Client) PollUntilDone(ctx context.Context, jobID string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"job_id": jobID})

	for attempt := 0; attempt < pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/status", bytes.NewReader(reqBody))
		if err != nil {
			return "", fmt.Errorf("create poll request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			log.Printf("Stems poll error: %v, retrying...", err)
			sleepCtx(ctx, pollInterval)
			continue
		}

		var result pollResp
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			log.Printf("Stems poll decode error: %v, retrying...", err)
			sleepCtx(ctx, pollInterval)
			continue
		}
		resp.Body.Close()

		if result.Status == 0 && result.URL != "" {
			return result.URL, nil
		}
		sleepCtx(ctx, pollInterval)
	}
	return "", ErrJobTimeout
}

// Download fetches the finished archive and expands its WAV entries.
func (c *Client) Download(ctx context.Context, archiveURL string) ([]StemBlob, error) {
	if strings.HasPrefix(archiveURL, "/") {
		archiveURL = c.apiURL + archiveURL
	}

	req, err := http.NewRequestWithContext(ctx, "GET", archiveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var blobs []StemBlob
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".wav") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
		}
		blobs = append(blobs, StemBlob{Name: path.Base(f.Name), Data: data})
	}
	if len(blobs) == 0 {
		return nil, fmt.Errorf("no wav entries in archive")
	}
	return blobs, nil
}

// Separate runs the full upload, poll, download flow.
func (c *Client) Separate(ctx context.Context, fileName string, wav []byte, stemCount int) ([]StemBlob, error) {
	jobID, err := c.Upload(ctx, fileName, wav, stemCount)
	if err != nil {
		return nil, err
	}
	log.Printf("Stems: job %s submitted (%d stems)", jobID, stemCount)

	archiveURL, err := c.PollUntilDone(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return c.Download(ctx, archiveURL)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

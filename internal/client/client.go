// Package client talks to the exam HTTP API. Client implements exam.Submitter.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/victornm/phishlms/internal/domain"
	"github.com/victornm/phishlms/internal/errors"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

type Client struct {
	base  string
	token string
	hc    *http.Client
}

func New(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		base:  strings.TrimRight(c.BaseURL, "/"),
		token: c.Token,
		hc:    hc,
	}
}

// GetQuestions fetches the redacted question set and the advertised time limit.
func (c *Client) GetQuestions(ctx context.Context) ([]domain.QuestionView, time.Duration, error) {
	var qs domain.QuestionSet
	if err := c.do(ctx, http.MethodGet, "/api/exam/questions", nil, &qs); err != nil {
		return nil, 0, err
	}

	return qs.Questions, time.Duration(qs.TimeLimitSeconds) * time.Second, nil
}

// Submit sends a packaged submission. Errors from the server are returned as *errors.Error; anything
// else is a transport failure.
func (c *Client) Submit(ctx context.Context, s domain.Submission) (*domain.ExamResult, error) {
	var res domain.ExamResult
	if err := c.do(ctx, http.MethodPost, "/api/exam/submit", s, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *Client) ListResults(ctx context.Context) ([]domain.ExamResult, error) {
	var res []domain.ExamResult
	if err := c.do(ctx, http.MethodGet, "/api/exam/results", nil, &res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// GetProgress fetches the progress summary and validates it before returning.
func (c *Client) GetProgress(ctx context.Context) (*domain.ProgressSummary, error) {
	var p domain.ProgressSummary
	if err := c.do(ctx, http.MethodGet, "/api/training/progress", nil, &p); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	return &p, nil
}

// ListCourses returns the courses of tier, or of the caller's own tier when tier is empty.
func (c *Client) ListCourses(ctx context.Context, tier domain.Classification) ([]domain.Course, error) {
	p := "/api/training/courses"
	if tier != "" {
		p += "/" + url.PathEscape(string(tier))
	}

	var courses []domain.Course
	if err := c.do(ctx, http.MethodGet, p, nil, &courses); err != nil {
		return nil, err
	}

	return courses, nil
}

func (c *Client) CompleteCourse(ctx context.Context, courseID string) error {
	return c.do(ctx, http.MethodPost, "/api/training/complete/"+url.PathEscape(courseID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, b)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}

	return nil
}

// decodeError turns an error body into *errors.Error. Bodies that are not ours (a proxy's 502 page)
// are reported as plain errors so callers treat them as transport failures.
func decodeError(status int, b []byte) error {
	var e errors.Error
	if err := json.Unmarshal(b, &e); err != nil || e.Code == 0 {
		return fmt.Errorf("client: unexpected status %d: %s", status, bytes.TrimSpace(b))
	}

	return &e
}

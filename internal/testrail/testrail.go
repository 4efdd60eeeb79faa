// Package testrail posts analysis outcomes to a TestRail run.
package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/printqa/backend/internal/util"
	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/logger"

	"golang.org/x/time/rate"
)

const (
	StatusPassed = 1
	StatusFailed = 5
)

// DefaultRequestsPerMinute stays under the TestRail Cloud API limit.
const DefaultRequestsPerMinute = 180

// Reporter sends one analysis outcome for a test case.
type Reporter interface {
	SendResult(ctx context.Context, caseID int64, report analysis.Report) error
}

type Config struct {
	URL    string
	User   string
	Key    string
	RunID  int64
	DryRun bool
}

// ConfigFromEnv reads TESTRAIL_URL, TESTRAIL_USER, TESTRAIL_KEY,
// TESTRAIL_RUN_ID and TESTRAIL_DRY_RUN.
func ConfigFromEnv() Config {
	return Config{
		URL:    util.GetEnv("TESTRAIL_URL"),
		User:   util.GetEnv("TESTRAIL_USER"),
		Key:    util.GetEnv("TESTRAIL_KEY"),
		RunID:  int64(util.GetEnvNumeric("TESTRAIL_RUN_ID", 0)),
		DryRun: util.GetEnvBool("TESTRAIL_DRY_RUN", false),
	}
}

// Enabled reports whether enough credentials are present to send results.
func (c Config) Enabled() bool {
	return c.URL != "" && c.User != "" && c.Key != "" && c.RunID > 0
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	maxTries   int
	backoff    time.Duration
	limiter    *rate.Limiter
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithRetry sets how often a failed request is attempted and the initial wait.
func WithRetry(maxTries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxTries = maxTries
		c.backoff = backoff
	}
}

// WithRateLimit caps outgoing requests, retries included. perMinute <= 0
// removes the cap.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// NewClient returns nil when cfg lacks credentials, so callers can keep
// reporting optional.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	if !cfg.Enabled() {
		return nil
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxTries:   3,
		backoff:    time.Second,
	}
	WithRateLimit(DefaultRequestsPerMinute)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type addResultRequest struct {
	StatusID int    `json:"status_id"`
	Comment  string `json:"comment"`
}

// StatusFor maps a report to the TestRail status id.
func StatusFor(report analysis.Report) int {
	if report.Clean() {
		return StatusPassed
	}
	return StatusFailed
}

func Comment(report analysis.Report) string {
	return fmt.Sprintf("Automatic analysis: Watertight=%t, InvertedFaces=%t", report.IsWatertight, report.HasInvertedFaces)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("testrail responded %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

func (c *Client) endpoint(caseID int64) string {
	base := strings.TrimSuffix(c.cfg.URL, "/")
	return fmt.Sprintf("%s/index.php?/api/v2/add_result_for_case/%d/%d", base, c.cfg.RunID, caseID)
}

func (c *Client) SendResult(ctx context.Context, caseID int64, report analysis.Report) error {
	body := addResultRequest{
		StatusID: StatusFor(report),
		Comment:  Comment(report),
	}

	if c.cfg.DryRun {
		logger.Info("[TestRail] Dry run, result not sent", "case", caseID, "status", body.StatusID, "comment", body.Comment)
		return nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	err = util.RetryErrWithContext(ctx, c.maxTries, func(ctx context.Context) error {
		return c.post(ctx, c.endpoint(caseID), payload)
	}, util.WithBackoff(c.backoff), util.WithRetryIf(retryable))
	if err != nil {
		return fmt.Errorf("send result for case C%d: %w", caseID, err)
	}

	logger.Info("[TestRail] Result sent", "case", caseID, "status", body.StatusID)
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.User, c.cfg.Key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	return nil
}

// Report sends report for caseID when both are set. Failures are logged and
// never returned: a TestRail outage must not fail an analysis.
func Report(ctx context.Context, r Reporter, caseID *int64, report analysis.Report) {
	if r == nil || caseID == nil || *caseID <= 0 {
		return
	}
	if err := r.SendResult(ctx, *caseID, report); err != nil {
		logger.Warn("[TestRail] Failed to send result", "case", *caseID, "file", report.FileName, "err", err)
	}
}

// DetachedTimeout bounds a ReportDetached call, retries included.
const DetachedTimeout = time.Minute

// ReportDetached runs Report in the background on a context that outlives
// ctx's cancellation but ends after DetachedTimeout. HTTP handlers use it so
// a slow TestRail never holds the response.
func ReportDetached(ctx context.Context, r Reporter, caseID *int64, report analysis.Report) {
	if r == nil || caseID == nil || *caseID <= 0 {
		return
	}
	id := *caseID
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DetachedTimeout)
		defer cancel()
		Report(ctx, r, &id, report)
	}()
}

// NewReporter is NewClient returning a nil Reporter when reporting is disabled.
func NewReporter(cfg Config, opts ...ClientOption) Reporter {
	c := NewClient(cfg, opts...)
	if c == nil {
		return nil
	}
	return c
}

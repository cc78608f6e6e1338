package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsamp "github.com/aws/aws-sdk-go-v2/service/amp"
	amptypes "github.com/aws/aws-sdk-go-v2/service/amp/types"

	"github.com/ampgate/ampgate/internal/domain"
)

// Amazon Managed Prometheus query API, SigV4-signed with service name "aps".
const (
	serviceName     = "aps"
	defaultEndpoint = "https://aps-workspaces.%s.amazonaws.com"

	// SHA-256 of the empty payload; every query here is a bodyless GET.
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// HTTPClient executes the signed query requests.
	HTTPClient *http.Client

	// AWSConfig supplies credentials for request signing and the amp
	// control-plane client.
	AWSConfig awssdk.Config

	// Endpoint is the workspace query endpoint, either a printf template
	// taking the region or a fixed URL (tests). Defaults to the AMP
	// regional endpoint.
	Endpoint string

	// ControlPlaneEndpoint overrides the amp service endpoint used for
	// ListWorkspaces. Empty means the SDK default.
	ControlPlaneEndpoint string
}

// Client executes PromQL queries against Amazon Managed Prometheus
// workspaces and lists workspaces through the amp control plane. Query
// calls are plain HTTP GETs signed with the deployment's execution
// identity; no retries are performed here.
type Client struct {
	httpClient           *http.Client
	awsCfg               awssdk.Config
	signer               *v4.Signer
	endpoint             string
	controlPlaneEndpoint string
	logger               *slog.Logger
}

// New creates a Client.
func New(cfg ClientConfig, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		httpClient:           httpClient,
		awsCfg:               cfg.AWSConfig,
		signer:               v4.NewSigner(),
		endpoint:             endpoint,
		controlPlaneEndpoint: cfg.ControlPlaneEndpoint,
		logger:               logger.With("component", "prometheus_client"),
	}
}

// Query executes an instant PromQL query. at is an optional evaluation
// timestamp; empty means "now" on the server side.
func (c *Client) Query(ctx context.Context, region, workspaceID, query, at string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("query", query)
	if at != "" {
		params.Set("time", at)
	}
	return c.signedGet(ctx, region, fmt.Sprintf("/workspaces/%s/api/v1/query", workspaceID), params)
}

// RangeQuery executes a PromQL range query over [start, end] with the given
// step.
func (c *Client) RangeQuery(ctx context.Context, region, workspaceID, query, start, end, step string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("start", start)
	params.Set("end", end)
	params.Set("step", step)
	return c.signedGet(ctx, region, fmt.Sprintf("/workspaces/%s/api/v1/query_range", workspaceID), params)
}

// ListMetricNames returns the metric names known to the workspace.
func (c *Client) ListMetricNames(ctx context.Context, region, workspaceID string) ([]string, error) {
	body, err := c.signedGet(ctx, region, fmt.Sprintf("/workspaces/%s/api/v1/label/__name__/values", workspaceID), url.Values{})
	if err != nil {
		return nil, err
	}

	raw, _ := body["data"].([]interface{})
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// ListWorkspaces returns the ACTIVE workspaces in the region, each with its
// query URL.
func (c *Client) ListWorkspaces(ctx context.Context, region string) ([]domain.Workspace, error) {
	client := awsamp.NewFromConfig(c.awsCfg, func(o *awsamp.Options) {
		o.Region = region
		if c.controlPlaneEndpoint != "" {
			o.BaseEndpoint = awssdk.String(c.controlPlaneEndpoint)
		}
	})

	out, err := client.ListWorkspaces(ctx, &awsamp.ListWorkspacesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	workspaces := make([]domain.Workspace, 0, len(out.Workspaces))
	for _, ws := range out.Workspaces {
		if ws.Status == nil || ws.Status.StatusCode != amptypes.WorkspaceStatusCodeActive {
			continue
		}
		id := awssdk.ToString(ws.WorkspaceId)
		workspaces = append(workspaces, domain.Workspace{
			ID:     id,
			Alias:  awssdk.ToString(ws.Alias),
			Status: string(ws.Status.StatusCode),
			URL:    c.baseURL(region) + "/workspaces/" + id,
		})
	}
	c.logger.Debug("Listed workspaces", slog.String("region", region), slog.Int("count", len(workspaces)))
	return workspaces, nil
}

// QueryURL returns the workspace query URL GetServerInfo reports.
func (c *Client) QueryURL(region, workspaceID string) string {
	return c.baseURL(region) + "/workspaces/" + workspaceID
}

func (c *Client) baseURL(region string) string {
	if strings.Contains(c.endpoint, "%s") {
		return fmt.Sprintf(c.endpoint, region)
	}
	return c.endpoint
}

func (c *Client) signedGet(ctx context.Context, region, path string, params url.Values) (map[string]interface{}, error) {
	fullURL := c.baseURL(region) + path
	if encoded := params.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}
	log := c.logger.With(slog.String("url", fullURL), slog.String("region", region))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	creds, err := c.awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve AWS credentials: %w", err)
	}
	if err := c.signer.SignHTTP(ctx, creds, req, emptyPayloadHash, serviceName, region, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	log.Debug("Executing signed Prometheus API request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request execution failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("Prometheus API returned non-success status", slog.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("prometheus API returned HTTP %d: %s", resp.StatusCode, body)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode prometheus API response: %w", err)
	}
	return result, nil
}

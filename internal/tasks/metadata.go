package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
)

const (
	// DefaultMetadataEndpoint is the EC2 instance metadata service.
	DefaultMetadataEndpoint = "http://169.254.169.254"

	// InstanceIDEnv overrides the metadata lookup.
	InstanceIDEnv = "EC2_INSTANCE_ID"

	defaultMetadataTimeout = 2 * time.Second
	tokenTTLSeconds        = "60"
)

// Metadata resolves the id of the instance the runner is on, first from
// EC2_INSTANCE_ID and then from IMDSv2.
type Metadata struct {
	endpoint string
	client   *http.Client
	getenv   func(string) (string, bool)
}

// MetadataOption configures Metadata.
type MetadataOption func(*Metadata)

// WithEndpoint points the lookup at another metadata server.
func WithEndpoint(url string) MetadataOption {
	return func(m *Metadata) {
		m.endpoint = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) MetadataOption {
	return func(m *Metadata) {
		m.client = c
	}
}

// WithMetadataEnv replaces the environment lookup.
func WithMetadataEnv(getenv func(string) (string, bool)) MetadataOption {
	return func(m *Metadata) {
		m.getenv = getenv
	}
}

// NewMetadata creates a resolver with a 2s HTTP timeout.
func NewMetadata(opts ...MetadataOption) *Metadata {
	m := &Metadata{
		endpoint: DefaultMetadataEndpoint,
		client:   &http.Client{Timeout: defaultMetadataTimeout},
		getenv:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InstanceID returns the instance id. Every failure wraps
// domain.ErrMetadataUnavailable.
func (m *Metadata) InstanceID(ctx context.Context) (string, error) {
	if id, ok := m.getenv(InstanceIDEnv); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id), nil
	}

	token, err := m.token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMetadataUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"/latest/meta-data/instance-id", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMetadataUnavailable, err)
	}
	req.Header.Set("X-aws-ec2-metadata-token", token)

	id, err := m.do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMetadataUnavailable, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty instance id", domain.ErrMetadataUnavailable)
	}
	return id, nil
}

func (m *Metadata) token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, m.endpoint+"/latest/api/token", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-aws-ec2-metadata-token-ttl-seconds", tokenTTLSeconds)
	return m.do(req)
}

func (m *Metadata) do(req *http.Request) (string, error) {
	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}

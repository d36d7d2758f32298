package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the sink.
const DefaultPrefix = "clapper:run:"

// StateSink implements ports.StateSink using a Redis list per run.
// Each outcome is RPUSHed in the same line format as the state file, so the
// list is append-only and ordered like the file.
type StateSink struct {
	client     *backend.Client
	runID      string
	prefix     string
	ttl        time.Duration
	ownsClient bool
}

// Option configures a StateSink.
type Option func(*StateSink)

// WithTTL sets the expiration of the run's list. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *StateSink) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *StateSink) {
		s.prefix = prefix
	}
}

// Open parses a redis:// URL and creates a sink that owns its client.
func Open(url, runID string, opts ...Option) (*StateSink, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	s := NewFromClient(backend.NewClient(o), runID, opts...)
	s.ownsClient = true
	return s, nil
}

// NewFromClient creates a sink on an existing client. Close does not close
// a client it did not create.
func NewFromClient(client *backend.Client, runID string, opts ...Option) *StateSink {
	s := &StateSink{
		client: client,
		runID:  runID,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StateSink) key() string {
	return s.prefix + s.runID
}

func (s *StateSink) indexKey() string {
	return s.prefix + "index"
}

// Ping checks connectivity.
func (s *StateSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Append pushes the outcome line and registers the run in the index.
func (s *StateSink) Append(ctx context.Context, outcome domain.StageOutcome) error {
	if err := outcome.Validate(); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()

	pipe.RPush(ctx, s.key(), domain.FormatOutcome(outcome))
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(), s.ttl)
	}
	// NX keeps the score of the first outcome, i.e. roughly the run start.
	pipe.ZAddNX(ctx, s.indexKey(), backend.Z{
		Score:  float64(outcome.Timestamp.Unix()),
		Member: s.runID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append outcome to redis: %w", err)
	}
	return nil
}

// Outcomes reads the run's list back.
func (s *StateSink) Outcomes(ctx context.Context) ([]domain.StageOutcome, error) {
	lines, err := s.client.LRange(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read outcomes from redis: %w", err)
	}

	outcomes := make([]domain.StageOutcome, 0, len(lines))
	for _, line := range lines {
		o, err := domain.ParseOutcome(line)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// Runs lists the run IDs recorded under the prefix, oldest first.
// Runs whose list expired are pruned from the index.
func (s *StateSink) Runs(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.prefix+id).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check run %s: %w", id, err)
		}
		if n == 0 {
			if err := s.client.ZRem(ctx, s.indexKey(), id).Err(); err != nil {
				return nil, fmt.Errorf("failed to prune run %s: %w", id, err)
			}
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// Close closes the client if the sink created it.
func (s *StateSink) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

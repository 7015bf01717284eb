// Package redisvec is the index-accelerated vector search backend: distance
// computation and ordering are delegated to a RediSearch HNSW index behind
// the same nearest-neighbors contract as the in-process scan. Vectors are
// mirrored here from the authoritative relational store on every paper
// change; losing the mirror loses nothing but speed.
package redisvec

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/search/result"
	"github.com/kailas-cloud/paperdex/internal/domain/visibility"
)

const defaultKeyPrefix = "paperdex:"

// Visibility tag values in the index.
const (
	tagPublic  = "public"
	tagPrivate = "private"
)

// Config holds connection and index parameters.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	Dimensions int
	KeyPrefix  string
}

// Store mirrors paper embeddings into a RediSearch HNSW index and serves KNN
// queries from it.
type Store struct {
	client rueidis.Client
	prefix string
	dims   int
}

// NewStore connects to Redis and prepares the index handle.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &Store{client: client, prefix: prefix, dims: cfg.Dimensions}, nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %v: %w", err, domain.ErrStorageUnavailable)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for vector index: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureIndex creates the HNSW index if it does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context) error {
	args := []string{
		s.indexName(),
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix(),
		"SCHEMA",
		"vector", "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dims),
		"DISTANCE_METRIC", "COSINE",
		"visibility", "TAG",
		"owner", "TAG",
	}

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "index already exists") {
			return nil
		}
		return fmt.Errorf("create vector index: %w", err)
	}
	return nil
}

// Upsert mirrors a paper's vector and visibility tags.
func (s *Store) Upsert(ctx context.Context, p domain.Paper, vector []float32) error {
	if len(vector) != s.dims {
		return fmt.Errorf("vector has %d dimensions, want %d: %w",
			len(vector), s.dims, domain.ErrVectorDimMismatch)
	}

	vis := tagPublic
	if p.IsPrivate {
		vis = tagPrivate
	}

	cmd := s.client.B().Hset().Key(s.key(p.ID)).FieldValue().
		FieldValue("vector", rueidis.BinaryString(domain.EncodeVector(vector))).
		FieldValue("visibility", vis).
		FieldValue("owner", strconv.FormatInt(p.OwnerID, 10)).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("upsert vector for paper %d: %w", p.ID, err)
	}
	return nil
}

// Remove drops a paper's mirror entry. Absence is not an error.
func (s *Store) Remove(ctx context.Context, paperID int64) error {
	cmd := s.client.B().Del().Key(s.key(paperID)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("remove vector for paper %d: %w", paperID, err)
	}
	return nil
}

// SearchVector runs a KNN query with the visibility predicate as a tag
// pre-filter, so eligibility and ranking are evaluated together.
func (s *Store) SearchVector(
	ctx context.Context, vector []float32, vis visibility.Context, limit int,
) ([]result.Hit, error) {
	if limit <= 0 {
		return nil, nil
	}

	queryStr := fmt.Sprintf("(%s)=>[KNN %d @vector $BLOB]", visibilityFilter(vis), limit)

	args := []string{
		s.indexName(), queryStr,
		"SORTBY", "__vector_score",
		"RETURN", "1", "__vector_score",
		"PARAMS", "2", "BLOB", rueidis.BinaryString(domain.EncodeVector(vector)),
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	return s.parseKNNResult(raw)
}

// parseKNNResult decodes the RESP2 FT.SEARCH reply:
// [total, key1, fields1, key2, fields2, ...].
func (s *Store) parseKNNResult(raw []rueidis.RedisMessage) ([]result.Hit, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]result.Hit, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		id, err := s.paperID(key)
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		distance, ok := fieldFloat(fields, "__vector_score")
		if !ok {
			continue
		}

		hits = append(hits, result.Hit{ID: id, Distance: distance})
	}

	return hits, nil
}

// visibilityFilter renders the eligibility predicate as index tag filters:
// public only for anonymous callers, public-or-owned for principals.
func visibilityFilter(vis visibility.Context) string {
	if principal, ok := vis.PrincipalID(); ok {
		return fmt.Sprintf("@visibility:{%s} | @owner:{%d}", tagPublic, principal)
	}
	return fmt.Sprintf("@visibility:{%s}", tagPublic)
}

func fieldFloat(fields []rueidis.RedisMessage, name string) (float64, bool) {
	for i := 0; i+1 < len(fields); i += 2 {
		k, err := fields[i].ToString()
		if err != nil || k != name {
			continue
		}
		v, err := fields[i+1].ToString()
		if err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func (s *Store) indexName() string {
	return s.prefix + "papers:idx"
}

func (s *Store) keyPrefix() string {
	return s.prefix + "papers:"
}

func (s *Store) key(paperID int64) string {
	return s.keyPrefix() + strconv.FormatInt(paperID, 10)
}

func (s *Store) paperID(key string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(key, s.keyPrefix()), 10, 64)
}

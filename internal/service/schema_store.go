package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/models"
	"github.com/noah-isme/awards-portal-api/internal/observability"
	"github.com/noah-isme/awards-portal-api/internal/repository"
)

// SchemaStore serves the ordered field descriptors of an award.
type SchemaStore interface {
	ListForAward(ctx context.Context, awardID uint) ([]formschema.Descriptor, error)
	Invalidate(ctx context.Context, awardID uint)
}

type schemaStore struct {
	repo   repository.FieldRepository
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSchemaStore wraps the field repository with a Redis read-through cache.
// A nil client disables caching.
func NewSchemaStore(repo repository.FieldRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) SchemaStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &schemaStore{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "schema_store").Logger(),
	}
}

func (s *schemaStore) ListForAward(ctx context.Context, awardID uint) ([]formschema.Descriptor, error) {
	if descriptors, ok := s.fetchCache(ctx, awardID); ok {
		observability.SchemaCacheLookups().WithLabelValues("hit").Inc()
		return descriptors, nil
	}

	rows, err := s.repo.ListForAward(ctx, awardID)
	if err != nil {
		return nil, err
	}
	descriptors := models.Descriptors(rows)

	s.writeCache(ctx, awardID, descriptors)
	observability.SchemaCacheLookups().WithLabelValues("miss").Inc()
	return descriptors, nil
}

func (s *schemaStore) Invalidate(ctx context.Context, awardID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, schemaCacheKey(awardID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("award_id", awardID).Msg("failed to invalidate schema cache")
	}
}

func (s *schemaStore) fetchCache(ctx context.Context, awardID uint) ([]formschema.Descriptor, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(ctx, schemaCacheKey(awardID)).Bytes()
	if err != nil {
		return nil, false
	}

	var descriptors []formschema.Descriptor
	if err := json.Unmarshal(payload, &descriptors); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode schema cache")
		return nil, false
	}
	return descriptors, true
}

func (s *schemaStore) writeCache(ctx context.Context, awardID uint, descriptors []formschema.Descriptor) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(descriptors)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode schema cache")
		return
	}
	if err := s.cache.Set(ctx, schemaCacheKey(awardID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store schema cache")
	}
}

func schemaCacheKey(awardID uint) string {
	return fmt.Sprintf("awards:schema:v1:%d", awardID)
}

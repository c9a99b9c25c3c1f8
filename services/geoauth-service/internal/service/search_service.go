package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/pkg/metrics"
	"GeoAuthPlatform/pkg/validation"
	"GeoAuthPlatform/services/geoauth-service/internal/domain"
	"GeoAuthPlatform/services/geoauth-service/internal/geocoder"
	"GeoAuthPlatform/services/geoauth-service/internal/repository"
)

// SearchService интерфейс поиска с кэшированием результатов
type SearchService interface {
	Search(ctx context.Context, rawKey string) ([]byte, error)
}

// GeoSearchService реализация SearchService по схеме cache-aside.
// Порядок чтения: Redis, затем PostgreSQL, затем внешний провайдер.
// Ключ нормализуется ровно один раз и используется и для чтения,
// и для записи: кэш не может быть отравлен ненормализованным ключом
type GeoSearchService struct {
	searchRepository repository.SearchResultRepository
	cache            repository.SearchCache
	provider         geocoder.Geocoder
	validator        *validation.Validator
	metrics          *metrics.Metrics
	logger           logger.Logger
}

// NewSearchService создает новый экземпляр SearchService
func NewSearchService(
	searchRepository repository.SearchResultRepository,
	cache repository.SearchCache,
	provider geocoder.Geocoder,
	validator *validation.Validator,
	m *metrics.Metrics,
	log logger.Logger,
) SearchService {
	return &GeoSearchService{
		searchRepository: searchRepository,
		cache:            cache,
		provider:         provider,
		validator:        validator,
		metrics:          m,
		logger:           log,
	}
}

// Search возвращает результат геокодирования по ключу.
// Промах обоих кэшей ведет к запросу провайдера и записи результата.
// Конкурентная вставка того же ключа не считается ошибкой: в базе
// остается первая запись, вызывающему отдается полученный ответ
func (s *GeoSearchService) Search(ctx context.Context, rawKey string) ([]byte, error) {
	if err := s.validator.ValidateSearchKey(rawKey); err != nil {
		return nil, err
	}

	searchKey := s.validator.NormalizeSearchKey(rawKey)

	// Быстрый слой
	if payload, err := s.cache.Get(ctx, searchKey); err == nil {
		s.metrics.RecordCacheLookup("hit_redis")
		return payload, nil
	} else if apperrors.AsError(err).Code != apperrors.ErrNotFound {
		// Недоступность Redis не должна ломать поиск
		s.logger.Warn("search cache read failed", logger.Error(err))
	}

	// Источник истины
	result, err := s.searchRepository.FindByKey(ctx, searchKey)
	if err == nil {
		s.metrics.RecordCacheLookup("hit_postgres")
		s.backfillCache(ctx, searchKey, result.Payload)
		return result.Payload, nil
	}
	if apperrors.AsError(err).Code != apperrors.ErrNotFound {
		return nil, err
	}

	// Промах: идем к провайдеру
	s.metrics.RecordCacheLookup("miss")
	payload, err := s.provider.Lookup(ctx, searchKey)
	if err != nil {
		if apperrors.AsError(err).Code == apperrors.ErrUpstreamTimeout {
			s.metrics.RecordProviderCall("timeout")
		} else {
			s.metrics.RecordProviderCall("error")
		}
		return nil, err
	}
	s.metrics.RecordProviderCall("success")

	if err := s.store(ctx, searchKey, payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// store записывает результат в базу и Redis.
// Дубликат ключа означает, что параллельный запрос успел раньше:
// полученный ответ все равно валиден и отдается вызывающему
func (s *GeoSearchService) store(ctx context.Context, searchKey string, payload []byte) error {
	result := &domain.SearchResult{
		ID:        uuid.New().String(),
		SearchKey: searchKey,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.searchRepository.Create(ctx, result); err != nil {
		if apperrors.AsError(err).Code != apperrors.ErrConflict {
			return err
		}
		s.logger.Debug("search result already cached by concurrent request",
			logger.String("search_key", searchKey))
	}

	s.backfillCache(ctx, searchKey, payload)
	return nil
}

func (s *GeoSearchService) backfillCache(ctx context.Context, searchKey string, payload []byte) {
	if err := s.cache.Set(ctx, searchKey, payload); err != nil {
		s.logger.Warn("search cache write failed", logger.Error(err))
	}
}

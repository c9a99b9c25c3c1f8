package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/services/geoauth-service/internal/domain"
	"GeoAuthPlatform/services/geoauth-service/internal/repository"
)

// SearchResultRepository реализация долговременного кэша геокодирования.
// Записи вставляются один раз и никогда не обновляются
type SearchResultRepository struct {
	*BaseRepository
}

// NewSearchResultRepository создает новый экземпляр SearchResultRepository
func NewSearchResultRepository(pool *pgxpool.Pool) repository.SearchResultRepository {
	return &SearchResultRepository{BaseRepository: NewBaseRepository(pool)}
}

// Create сохраняет результат геокодирования.
// Конкурентная вставка того же ключа дает CONFLICT, который вызывающая
// сторона трактует как "уже закэшировано", а не как сбой
func (r *SearchResultRepository) Create(ctx context.Context, result *domain.SearchResult) error {
	query := `INSERT INTO search_results (id, search_key, payload, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.Pool.Exec(ctx, query,
		result.ID,
		result.SearchKey,
		result.Payload,
		result.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return apperrors.Wrap(err, apperrors.ErrConflict, "search result already cached")
		}
		return fmt.Errorf("failed to create search result: %w", err)
	}

	return nil
}

// FindByKey возвращает результат по нормализованному ключу
func (r *SearchResultRepository) FindByKey(ctx context.Context, searchKey string) (*domain.SearchResult, error) {
	query := `SELECT id, search_key, payload, created_at
		FROM search_results WHERE search_key = $1`

	var result domain.SearchResult
	err := r.Pool.QueryRow(ctx, query, searchKey).Scan(
		&result.ID,
		&result.SearchKey,
		&result.Payload,
		&result.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrNotFound, "search result not found")
		}
		return nil, fmt.Errorf("failed to get search result: %w", err)
	}

	return &result, nil
}

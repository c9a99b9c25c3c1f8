package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Код PostgreSQL для нарушения уникального ограничения
const uniqueViolationCode = "23505"

// BaseRepository базовая структура для всех репозиториев PostgreSQL
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// NewBaseRepository создает новый экземпляр базового репозитория
func NewBaseRepository(pool *pgxpool.Pool) *BaseRepository {
	return &BaseRepository{Pool: pool}
}

// IsUniqueViolation возвращает true, если ошибка вызвана нарушением
// уникального ограничения (конкурентная вставка с тем же ключом)
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = sql.ErrNoRows

// DetectionRepo: кэш ответов движка по картинке. Не хранит ничего о пользователях.
type DetectionRepo struct{ DB *sql.DB }

func NewDetectionRepo(db *sql.DB) *DetectionRepo { return &DetectionRepo{DB: db} }

// DetectionRow: закэшированный ответ.
type DetectionRow struct {
	ID        int64
	CreatedAt time.Time
	ImageHash string
	Engine    string
	Model     string
	Verdict   string
	Raw       string
}

const schema = `
create table if not exists tick_detections (
  id          bigserial primary key,
  created_at  timestamptz not null default now(),
  image_hash  text not null,
  engine      text not null,
  model       text not null,
  verdict     text not null,
  raw_answer  text not null default '',
  unique (image_hash, engine, model)
)`

// Ответ клиенту собирается из вердикта при чтении, готовая строка не хранится.
const dropResult = `alter table tick_detections drop column if exists result`

// EnsureSchema создаёт таблицу, если её нет.
func (r *DetectionRepo) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{schema, dropResult} {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// FindByHash достаёт запись по ключу (image_hash + engine + model).
// Если maxAge > 0: проверяет "свежесть", иначе игнорирует возраст.
func (r *DetectionRepo) FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*DetectionRow, error) {
	const q = `
select id, created_at, image_hash, engine, model, verdict, raw_answer
from tick_detections
where image_hash = $1 and engine = $2 and model = $3
limit 1`
	var row DetectionRow
	err := r.DB.QueryRowContext(ctx, q, imageHash, engine, model).Scan(
		&row.ID, &row.CreatedAt, &row.ImageHash, &row.Engine, &row.Model,
		&row.Verdict, &row.Raw,
	)
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(row.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	return &row, nil
}

// Upsert сохраняет ответ. Существующая запись по ключу перезаписывается
// вместе с created_at, чтобы отсчёт свежести начался заново.
func (r *DetectionRepo) Upsert(ctx context.Context, row DetectionRow) error {
	const q = `
insert into tick_detections (image_hash, engine, model, verdict, raw_answer)
values ($1,$2,$3,$4,$5)
on conflict (image_hash, engine, model) do update
set created_at = now(),
    verdict = excluded.verdict,
    raw_answer = excluded.raw_answer`
	_, err := r.DB.ExecContext(ctx, q, row.ImageHash, row.Engine, row.Model, row.Verdict, row.Raw)
	return err
}

// PurgeOlderThan удаляет устаревшие записи, чтобы не раздувать БД.
func (r *DetectionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from tick_detections where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

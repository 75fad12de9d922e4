package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/pkg/errors"
)

const uniqueViolation = "23505"

// Schema creates the tables used by PostgresStore. Prices are NUMERIC for
// exact decimal precision.
const Schema = `
CREATE TABLE IF NOT EXISTS urls (
	id                TEXT PRIMARY KEY,
	url               TEXT NOT NULL UNIQUE,
	image_url         TEXT,
	has_price_changed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS monitored_items (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	url_id          TEXT NOT NULL REFERENCES urls(id) ON DELETE CASCADE,
	threshold       NUMERIC NOT NULL,
	condition       TEXT NOT NULL,
	is_foil         BOOLEAN NOT NULL DEFAULT FALSE,
	seller_verified BOOLEAN NOT NULL DEFAULT FALSE,
	owner_id        TEXT NOT NULL,
	owner_name      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_history (
	id          TEXT PRIMARY KEY,
	url_id      TEXT NOT NULL REFERENCES urls(id) ON DELETE CASCADE,
	price       NUMERIC NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS price_history_url_recorded_idx ON price_history (url_id, recorded_at);
`

const itemColumns = `
	i.id, i.name, i.url_id, i.threshold::TEXT, i.condition, i.is_foil, i.seller_verified,
	i.owner_id, i.owner_name, u.id, u.url, u.image_url, u.has_price_changed`

const summaryColumns = `
	u.id, u.url, u.image_url, u.has_price_changed,
	(SELECT name FROM monitored_items WHERE url_id = u.id ORDER BY created_at LIMIT 1),
	(SELECT price::TEXT FROM price_history WHERE url_id = u.id ORDER BY recorded_at DESC LIMIT 1),
	COALESCE((SELECT ARRAY_AGG(DISTINCT owner_name) FROM monitored_items
	          WHERE url_id = u.id AND owner_name <> ''), '{}')`

// PostgresStore implements Store using PostgreSQL as the source of truth.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger.ForStore()}
}

// Migrate creates the schema when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return errors.NewStorage(component, "migrate schema", err)
	}
	s.logger.Info().Msg("Schema migrated")
	return nil
}

func (s *PostgresStore) ListMonitoredItems(ctx context.Context) ([]model.MonitoredItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemColumns+`
		 FROM monitored_items i JOIN urls u ON u.id = i.url_id
		 ORDER BY i.created_at, i.id`)
	if err != nil {
		return nil, errors.NewStorage(component, "list monitored items", err)
	}
	defer rows.Close()

	var items []model.MonitoredItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, errors.NewStorage(component, "scan monitored item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(component, "list monitored items", err)
	}
	return items, nil
}

func (s *PostgresStore) GetMonitoredItem(ctx context.Context, id string) (*model.MonitoredItem, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+itemColumns+`
		 FROM monitored_items i JOIN urls u ON u.id = i.url_id
		 WHERE i.id = $1`, id)

	item, err := scanItem(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errItemNotFound(id)
	}
	if err != nil {
		return nil, errors.NewStorage(component, fmt.Sprintf("get monitored item %s", id), err)
	}
	return item, nil
}

func (s *PostgresStore) CreateMonitoredItem(ctx context.Context, item *model.MonitoredItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO monitored_items
		   (id, name, url_id, threshold, condition, is_foil, seller_verified, owner_id, owner_name)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7, $8, $9)`,
		item.ID, item.Name, item.URLID, item.Threshold.String(), string(item.Condition),
		item.IsFoil, item.SellerVerified, item.OwnerID, item.OwnerName,
	)
	if err != nil {
		return errors.NewStorage(component, "create monitored item", err)
	}

	created, err := s.GetMonitoredItem(ctx, item.ID)
	if err != nil {
		return err
	}
	*item = *created
	return nil
}

func (s *PostgresStore) UpdateMonitoredItem(ctx context.Context, item *model.MonitoredItem) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE monitored_items
		 SET name = $2, url_id = $3, threshold = $4::NUMERIC, condition = $5,
		     is_foil = $6, seller_verified = $7
		 WHERE id = $1`,
		item.ID, item.Name, item.URLID, item.Threshold.String(), string(item.Condition),
		item.IsFoil, item.SellerVerified,
	)
	if err != nil {
		return errors.NewStorage(component, fmt.Sprintf("update monitored item %s", item.ID), err)
	}
	if tag.RowsAffected() == 0 {
		return errItemNotFound(item.ID)
	}

	updated, err := s.GetMonitoredItem(ctx, item.ID)
	if err != nil {
		return err
	}
	*item = *updated
	return nil
}

func (s *PostgresStore) DeleteMonitoredItem(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitored_items WHERE id = $1`, id)
	if err != nil {
		return errors.NewStorage(component, fmt.Sprintf("delete monitored item %s", id), err)
	}
	if tag.RowsAffected() == 0 {
		return errItemNotFound(id)
	}
	return nil
}

func (s *PostgresStore) ListOwnersForURL(ctx context.Context, urlID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT owner_id FROM monitored_items WHERE url_id = $1 ORDER BY created_at, id`, urlID)
	if err != nil {
		return nil, errors.NewStorage(component, "list owners", err)
	}

	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.NewStorage(component, "list owners", err)
	}
	return owners, nil
}

func (s *PostgresStore) CreateURL(ctx context.Context, url string) (*model.URLRecord, error) {
	rec := &model.URLRecord{ID: uuid.NewString(), URL: url}

	_, err := s.pool.Exec(ctx, `INSERT INTO urls (id, url) VALUES ($1, $2)`, rec.ID, rec.URL)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, errDuplicateURL(url)
		}
		return nil, errors.NewStorage(component, "create url", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetURL(ctx context.Context, id string) (*model.URLRecord, error) {
	return s.getURL(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) GetURLByString(ctx context.Context, url string) (*model.URLRecord, error) {
	return s.getURL(ctx, `WHERE url = $1`, url)
}

func (s *PostgresStore) getURL(ctx context.Context, where, key string) (*model.URLRecord, error) {
	var rec model.URLRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, image_url, has_price_changed FROM urls `+where, key).
		Scan(&rec.ID, &rec.URL, &rec.ImageURL, &rec.HasPriceChanged)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errURLNotFound(key)
	}
	if err != nil {
		return nil, errors.NewStorage(component, fmt.Sprintf("get url %s", key), err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListURLSummaries(ctx context.Context) ([]model.URLSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+summaryColumns+` FROM urls u ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, errors.NewStorage(component, "list urls", err)
	}
	defer rows.Close()

	summaries := []model.URLSummary{}
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, errors.NewStorage(component, "scan url", err)
		}
		summaries = append(summaries, *summary)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(component, "list urls", err)
	}
	return summaries, nil
}

func (s *PostgresStore) GetURLSummary(ctx context.Context, id string) (*model.URLSummary, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+summaryColumns+` FROM urls u WHERE u.id = $1`, id)

	summary, err := scanSummary(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errURLNotFound(id)
	}
	if err != nil {
		return nil, errors.NewStorage(component, fmt.Sprintf("get url summary %s", id), err)
	}
	return summary, nil
}

func (s *PostgresStore) SetURLImage(ctx context.Context, id, imageURL string) (*model.URLRecord, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE urls SET image_url = $2 WHERE id = $1`, id, imageURL)
	if err != nil {
		return nil, errors.NewStorage(component, "set url image", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, errURLNotFound(id)
	}
	return s.GetURL(ctx, id)
}

func (s *PostgresStore) SetURLImageIfAbsent(ctx context.Context, id, imageURL string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE urls SET image_url = $2 WHERE id = $1 AND image_url IS NULL`, id, imageURL)
	if err != nil {
		return errors.NewStorage(component, "set url image", err)
	}
	return nil
}

func (s *PostgresStore) SetHasPriceChanged(ctx context.Context, id string, changed bool) (*model.URLRecord, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE urls SET has_price_changed = $2 WHERE id = $1`, id, changed)
	if err != nil {
		return nil, errors.NewStorage(component, "set has price changed", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, errURLNotFound(id)
	}
	return s.GetURL(ctx, id)
}

func (s *PostgresStore) GetLatestPrice(ctx context.Context, urlID string) (*model.PriceHistoryEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url_id, price::TEXT, recorded_at FROM price_history
		 WHERE url_id = $1 ORDER BY recorded_at DESC LIMIT 1`, urlID)

	entry, err := scanHistory(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorage(component, "get latest price", err)
	}
	return entry, nil
}

func (s *PostgresStore) AppendPriceHistory(ctx context.Context, urlID string, price decimal.Decimal) (*model.PriceHistoryEntry, error) {
	entry := &model.PriceHistoryEntry{
		ID:        uuid.NewString(),
		URLID:     urlID,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_history (id, url_id, price, recorded_at) VALUES ($1, $2, $3::NUMERIC, $4)`,
		entry.ID, entry.URLID, entry.Price.String(), entry.Timestamp)
	if err != nil {
		return nil, errors.NewStorage(component, "append price history", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListPriceHistory(ctx context.Context, urlID string) ([]model.PriceHistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url_id, price::TEXT, recorded_at FROM price_history
		 WHERE url_id = $1 ORDER BY recorded_at ASC`, urlID)
	if err != nil {
		return nil, errors.NewStorage(component, "list price history", err)
	}
	defer rows.Close()

	var entries []model.PriceHistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, errors.NewStorage(component, "scan price history", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(component, "list price history", err)
	}
	return entries, nil
}

func scanItem(row pgx.Row) (*model.MonitoredItem, error) {
	var item model.MonitoredItem
	var threshold, condition string

	err := row.Scan(&item.ID, &item.Name, &item.URLID, &threshold, &condition,
		&item.IsFoil, &item.SellerVerified, &item.OwnerID, &item.OwnerName,
		&item.URL.ID, &item.URL.URL, &item.URL.ImageURL, &item.URL.HasPriceChanged)
	if err != nil {
		return nil, err
	}

	item.Condition = model.Condition(condition)
	item.Threshold, err = decimal.NewFromString(threshold)
	if err != nil {
		return nil, fmt.Errorf("parse threshold %q: %w", threshold, err)
	}
	return &item, nil
}

func scanSummary(row pgx.Row) (*model.URLSummary, error) {
	var summary model.URLSummary
	var latest *string

	err := row.Scan(&summary.ID, &summary.URL, &summary.ImageURL, &summary.HasPriceChanged,
		&summary.MonitoredItemName, &latest, &summary.OwnerNames)
	if err != nil {
		return nil, err
	}

	if latest != nil {
		price, err := decimal.NewFromString(*latest)
		if err != nil {
			return nil, fmt.Errorf("parse latest price %q: %w", *latest, err)
		}
		summary.LatestPrice = &price
	}
	return &summary, nil
}

func scanHistory(row pgx.Row) (*model.PriceHistoryEntry, error) {
	var entry model.PriceHistoryEntry
	var price string

	if err := row.Scan(&entry.ID, &entry.URLID, &price, &entry.Timestamp); err != nil {
		return nil, err
	}

	var err error
	entry.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	return &entry, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/yescount/internal/persistence"
)

const eventColumns = `id, title, description, date_start, date_end, location, price_min, price_max, url, source, source_id, vibe_tags, created_at, updated_at`

// EventRepository implements persistence.EventRepository
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewEventRepository creates a new event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// UpsertEvent inserts the event or updates the row with the same source and
// source id, returning the stored record.
func (r *EventRepository) UpsertEvent(ctx context.Context, event persistence.Event) (persistence.Event, error) {
	if strings.TrimSpace(event.Title) == "" || event.Source == "" || event.SourceID == "" {
		return persistence.Event{}, persistence.ErrConstraintViolation
	}

	tags, err := json.Marshal(normalizedTags(event.VibeTags))
	if err != nil {
		return persistence.Event{}, fmt.Errorf("failed to encode vibe tags: %w", err)
	}

	now := toMillis(r.now())
	query := `
		INSERT INTO events (title, description, date_start, date_end, location, price_min, price_max, url, source, source_id, vibe_tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, source_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			date_start = excluded.date_start,
			date_end = excluded.date_end,
			location = excluded.location,
			price_min = excluded.price_min,
			price_max = excluded.price_max,
			url = excluded.url,
			vibe_tags = excluded.vibe_tags,
			updated_at = excluded.updated_at
		RETURNING ` + eventColumns

	row := r.helper.QueryRow(ctx, query,
		event.Title,
		event.Description,
		toMillis(event.DateStart),
		nullMillis(event.DateEnd),
		event.Location,
		nullFloat(event.PriceMin),
		nullFloat(event.PriceMax),
		event.URL,
		event.Source,
		event.SourceID,
		string(tags),
		now,
		now,
	)

	stored, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return stored, nil
}

// GetEvent retrieves an event by ID
func (r *EventRepository) GetEvent(ctx context.Context, id int64) (persistence.Event, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// ListEvents returns events matching filter ordered by start time then ID
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.StartsAfter != nil {
		conditions = append(conditions, "date_start >= ?")
		args = append(args, toMillis(*filter.StartsAfter))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "date_start < ?")
		args = append(args, toMillis(*filter.StartsBefore))
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []persistence.Event{}, nil
		}
		conditions = append(conditions, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date_start ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events := []persistence.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                persistence.Event
		dateStart            int64
		dateEnd              sql.NullInt64
		priceMin, priceMax   sql.NullFloat64
		tags                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&dateStart,
		&dateEnd,
		&event.Location,
		&priceMin,
		&priceMax,
		&event.URL,
		&event.Source,
		&event.SourceID,
		&tags,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Event{}, err
	}

	event.DateStart = fromMillis(dateStart)
	event.DateEnd = timePtr(dateEnd)
	event.PriceMin = floatPtr(priceMin)
	event.PriceMax = floatPtr(priceMax)
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	if err := json.Unmarshal([]byte(tags), &event.VibeTags); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to decode vibe tags for event %d: %w", event.ID, err)
	}
	return event, nil
}

func normalizedTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

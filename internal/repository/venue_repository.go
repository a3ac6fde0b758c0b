package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-advisory-api/internal/models"
)

// VenueRepository persists session venues.
type VenueRepository struct {
	db *sqlx.DB
}

// NewVenueRepository constructs the repository.
func NewVenueRepository(db *sqlx.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

// FindByID returns a venue by identifier.
func (r *VenueRepository) FindByID(ctx context.Context, id string) (*models.Venue, error) {
	const query = `SELECT id, name, location, capacity, active, created_at, updated_at FROM venues WHERE id = $1 LIMIT 1`
	var venue models.Venue
	if err := r.db.GetContext(ctx, &venue, query, id); err != nil {
		return nil, err
	}
	return &venue, nil
}

// List returns venues based on filters with total count.
func (r *VenueRepository) List(ctx context.Context, filter models.VenueFilter) ([]models.Venue, int, error) {
	baseQuery := `FROM venues WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(location) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "capacity": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, name, location, capacity, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var venues []models.Venue
	if err := r.db.SelectContext(ctx, &venues, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list venues: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count venues: %w", err)
	}

	return venues, total, nil
}

// Create inserts a new venue.
func (r *VenueRepository) Create(ctx context.Context, venue *models.Venue) error {
	if venue.ID == "" {
		venue.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if venue.CreatedAt.IsZero() {
		venue.CreatedAt = now
	}
	venue.UpdatedAt = now

	const query = `INSERT INTO venues (id, name, location, capacity, active, created_at, updated_at) VALUES (:id, :name, :location, :capacity, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, venue); err != nil {
		return fmt.Errorf("create venue: %w", err)
	}
	return nil
}

// Update updates mutable fields of a venue.
func (r *VenueRepository) Update(ctx context.Context, venue *models.Venue) error {
	venue.UpdatedAt = time.Now().UTC()
	const query = `UPDATE venues SET name = :name, location = :location, capacity = :capacity, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, venue); err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	return nil
}

// Delete soft-deletes a venue by marking it inactive.
func (r *VenueRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE venues SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete venue: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"go.uber.org/zap"
)

const ipAddressColumns = `id, ip_address, ip_version, label, comment, created_by, created_at, updated_at, deleted_at`

// IPAddressRepository implements the repositories.IPAddressRepository interface
type IPAddressRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewIPAddressRepository creates a new IP address repository
func NewIPAddressRepository(db *DB, logger *zap.Logger) repositories.IPAddressRepository {
	return &IPAddressRepository{
		db:     db,
		logger: logger,
	}
}

// List returns live entries newest first and the total live count
func (r *IPAddressRepository) List(ctx context.Context, limit, offset int) ([]*models.IPAddress, int, error) {
	executor := GetExecutor(ctx, r.db)

	var total int
	if err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ip_addresses WHERE deleted_at IS NULL`,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ip addresses: %w", err)
	}

	query := `
		SELECT ` + ipAddressColumns + `
		FROM ip_addresses
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := executor.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query ip addresses: %w", err)
	}
	defer rows.Close()

	ips := make([]*models.IPAddress, 0)
	for rows.Next() {
		ip, err := scanIPAddress(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ip address: %w", err)
		}
		ips = append(ips, ip)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating ip address rows: %w", err)
	}

	return ips, total, nil
}

// GetByID retrieves a live entry
func (r *IPAddressRepository) GetByID(ctx context.Context, id int64) (*models.IPAddress, error) {
	query := `SELECT ` + ipAddressColumns + ` FROM ip_addresses WHERE id = $1 AND deleted_at IS NULL`
	return r.getOne(ctx, query, id)
}

// GetByAddressWithTrashed retrieves an entry by address including soft-deleted
// ones, preferring the live row
func (r *IPAddressRepository) GetByAddressWithTrashed(ctx context.Context, address string) (*models.IPAddress, error) {
	query := `
		SELECT ` + ipAddressColumns + `
		FROM ip_addresses
		WHERE ip_address = $1
		ORDER BY deleted_at IS NOT NULL, id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, address)
}

// ExistsLive reports whether a live entry holds the address
func (r *IPAddressRepository) ExistsLive(ctx context.Context, address string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ip_addresses WHERE ip_address = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, address).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ip address: %w", err)
	}
	return exists, nil
}

// AddressesByIDs maps ids to addresses, including soft-deleted entries
func (r *IPAddressRepository) AddressesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	result := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT id, ip_address FROM ip_addresses WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip addresses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var address string
		if err := rows.Scan(&id, &address); err != nil {
			return nil, fmt.Errorf("failed to scan ip address: %w", err)
		}
		result[id] = address
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ip address rows: %w", err)
	}

	return result, nil
}

// Create inserts an entry. The partial unique index on live addresses turns
// a concurrent duplicate into repositories.ErrDuplicate.
func (r *IPAddressRepository) Create(ctx context.Context, ip *models.IPAddress) error {
	query := `
		INSERT INTO ip_addresses (ip_address, ip_version, label, comment, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		ip.IPAddress,
		ip.IPVersion,
		ip.Label,
		ip.Comment,
		ip.CreatedBy,
		ip.CreatedAt,
		ip.UpdatedAt,
	).Scan(&ip.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("failed to create ip address: %w", err)
	}

	r.logger.Debug("ip address created", zap.Int64("id", ip.ID), zap.String("ip_address", ip.IPAddress))
	return nil
}

// Update stores label and comment changes
func (r *IPAddressRepository) Update(ctx context.Context, ip *models.IPAddress) error {
	query := `
		UPDATE ip_addresses
		SET label = $2,
		    comment = $3,
		    updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, ip.ID, ip.Label, ip.Comment, ip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update ip address: %w", err)
	}
	return requireRow(result)
}

// SoftDelete marks the entry deleted at the given time
func (r *IPAddressRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE ip_addresses
		SET deleted_at = $2,
		    updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete ip address: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	r.logger.Debug("ip address soft deleted", zap.Int64("id", id))
	return nil
}

func (r *IPAddressRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.IPAddress, error) {
	ip, err := scanIPAddress(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ip address: %w", err)
	}
	return ip, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIPAddress(row rowScanner) (*models.IPAddress, error) {
	ip := &models.IPAddress{}
	err := row.Scan(
		&ip.ID,
		&ip.IPAddress,
		&ip.IPVersion,
		&ip.Label,
		&ip.Comment,
		&ip.CreatedBy,
		&ip.CreatedAt,
		&ip.UpdatedAt,
		&ip.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return ip, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id int64) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// Create inserts a new device and sets its ID from the database.
	// Returns ErrNameTaken, ErrMACTaken or ErrAddressTaken when a
	// uniqueness constraint is violated.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id int64) error

	// NameTaken reports whether a device other than excludeID already
	// uses the name. Pass excludeID 0 to check against all devices.
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)

	// MACTaken reports whether a device other than excludeID already
	// uses the MAC address. Comparison is against the stored uppercase form.
	MACTaken(ctx context.Context, mac string, excludeID int64) (bool, error)

	// AddressTaken reports whether a device other than excludeID already
	// uses the network address.
	AddressTaken(ctx context.Context, address string, excludeID int64) (bool, error)

	// FindFirstMatch retrieves the first device whose name contains the
	// query (case-insensitive), or whose type matches a vocabulary word.
	// Returns ErrDeviceNotFound when nothing matches.
	FindFirstMatch(ctx context.Context, query string) (*Device, error)
}

const deviceColumns = "id, name, type, manufacturer, mac, address, matter_node_id, created_at"

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices WHERE id = ?"

	row := r.db.QueryRowContext(ctx, query, id)
	device, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// List retrieves all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices ORDER BY name"
	return r.queryDevices(ctx, query)
}

// Create inserts a new device and sets its ID from the database.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO devices (name, type, manufacturer, mac, address, matter_node_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		device.Name,
		string(device.Type),
		string(device.Manufacturer),
		nullableString(device.MAC),
		nullableString(device.Address),
		nullableString(device.MatterNodeID),
		device.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if taken := uniqueConstraintError(err); taken != nil {
			return taken
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted device id: %w", err)
	}
	device.ID = id

	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	query := `
		UPDATE devices SET
			name = ?, type = ?, manufacturer = ?, mac = ?, address = ?, matter_node_id = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.Name,
		string(device.Type),
		string(device.Manufacturer),
		nullableString(device.MAC),
		nullableString(device.Address),
		nullableString(device.MatterNodeID),
		device.ID,
	)
	if err != nil {
		if taken := uniqueConstraintError(err); taken != nil {
			return taken
		}
		return fmt.Errorf("updating device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// NameTaken reports whether a device other than excludeID already uses the name.
func (r *SQLiteRepository) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	return r.fieldTaken(ctx, "name = ?", name, excludeID)
}

// MACTaken reports whether a device other than excludeID already uses the MAC address.
func (r *SQLiteRepository) MACTaken(ctx context.Context, mac string, excludeID int64) (bool, error) {
	return r.fieldTaken(ctx, "mac = ?", strings.ToUpper(mac), excludeID)
}

// AddressTaken reports whether a device other than excludeID already uses the address.
func (r *SQLiteRepository) AddressTaken(ctx context.Context, address string, excludeID int64) (bool, error) {
	return r.fieldTaken(ctx, "address = ?", address, excludeID)
}

func (r *SQLiteRepository) fieldTaken(ctx context.Context, cond, value string, excludeID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM devices WHERE " + cond + " AND id != ?"
	if err := r.db.QueryRowContext(ctx, query, value, excludeID).Scan(&count); err != nil {
		return false, fmt.Errorf("checking uniqueness: %w", err)
	}
	return count > 0, nil
}

// FindFirstMatch retrieves the first device whose name contains the query,
// or whose type matches one of the vocabulary words for it.
func (r *SQLiteRepository) FindFirstMatch(ctx context.Context, query string) (*Device, error) {
	types := TypesForWord(query)

	sb := strings.Builder{}
	sb.WriteString("SELECT " + deviceColumns + " FROM devices WHERE instr(lower(name), lower(?)) > 0")
	args := []any{strings.TrimSpace(query)}
	if len(types) > 0 {
		sb.WriteString(" OR type IN (?" + strings.Repeat(", ?", len(types)-1) + ")")
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	sb.WriteString(" ORDER BY id LIMIT 1")

	row := r.db.QueryRowContext(ctx, sb.String(), args...)
	device, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("searching devices: %w", err)
	}
	return device, nil
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row or rows result into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var mac, address, matterNodeID sql.NullString
	var deviceType, manufacturer string
	var createdAt string

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&deviceType,
		&manufacturer,
		&mac,
		&address,
		&matterNodeID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	d.Type = DeviceType(deviceType)
	d.Manufacturer = Manufacturer(manufacturer)

	if mac.Valid {
		d.MAC = &mac.String
	}
	if address.Valid {
		d.Address = &address.String
	}
	if matterNodeID.Valid {
		d.MatterNodeID = &matterNodeID.String
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}

	return &d, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// uniqueConstraintError maps a SQLite unique constraint violation to the
// matching domain error, or returns nil for unrelated errors.
func uniqueConstraintError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") &&
		!strings.Contains(msg, "unique constraint") {
		return nil
	}
	switch {
	case strings.Contains(msg, "devices.name"):
		return ErrNameTaken
	case strings.Contains(msg, "devices.mac"):
		return ErrMACTaken
	case strings.Contains(msg, "devices.address"):
		return ErrAddressTaken
	}
	return ErrDeviceExists
}

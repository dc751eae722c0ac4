package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/staffdesk/employee-api/internal/api"
)

const uniqueViolationCode = "23505"

// employeeColumns is the column list every stored procedure returns, in the
// order scanEmployeeRow expects.
const employeeColumns = `employee_id, name, designation, address, department, joining_date, skillset,
       username, password_hash, status, role, profile_image, created_by, created_at, modified_by, modified_at`

// Queryer is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ EmployeeRepo = (*PostgresEmployeeRepo)(nil)

// EmployeeRepo is the record store adapter contract. It executes parameterized
// stored-procedure calls and maps rows to records; it carries no business
// logic. Optional attributes travel as typed nils so the store can tell
// "unset" from "cleared".
type EmployeeRepo interface {
	// GetByUsername returns the full record for a username, password hash
	// included, so the service can verify credentials.
	// Returns api.ErrNotFound when the username is unknown.
	GetByUsername(ctx context.Context, username string) (*Employee, error)

	// Register inserts a new record and returns the store-assigned id.
	Register(ctx context.Context, emp *Employee) (int, error)

	// GetByID returns one record or api.ErrNotFound.
	GetByID(ctx context.Context, id int) (*Employee, error)

	// GetAll returns every employee record.
	GetAll(ctx context.Context) ([]Employee, error)

	// Update writes the full merged row and reports whether any row changed.
	// The caller is responsible for merging; omitted fields sent as nil would
	// clear the stored column.
	Update(ctx context.Context, emp *Employee) (bool, error)

	// SetProfileImage stores the reference path of an uploaded asset.
	SetProfileImage(ctx context.Context, id int, path *string) error

	// Delete removes a record. Present in the interface contract though
	// unused by the view flows.
	Delete(ctx context.Context, id int) (bool, error)
}

type PostgresEmployeeRepo struct {
	logger *slog.Logger
	db     Queryer
}

func NewPostgresEmployeeRepo(db Queryer, logger *slog.Logger) *PostgresEmployeeRepo {
	return &PostgresEmployeeRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresEmployeeRepo) GetByUsername(ctx context.Context, username string) (*Employee, error) {
	ctx, span := otel.Tracer("EmployeeRepo").Start(ctx, "GetByUsername", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
	))
	defer span.End()

	row := r.db.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM sp_get_employee_by_username($1)`, username)

	emp, err := scanEmployeeRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("get employee by username: %w", err)
	}
	return emp, nil
}

func (r *PostgresEmployeeRepo) Register(ctx context.Context, emp *Employee) (int, error) {
	ctx, span := otel.Tracer("EmployeeRepo").Start(ctx, "Register", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "employees"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Register"), slog.String("username", emp.Username))

	var id int
	err := r.db.QueryRow(ctx,
		`SELECT sp_register_employee($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		emp.Name,
		emp.Designation,
		emp.Address,
		emp.Department,
		joiningDateArg(emp.JoiningDate),
		emp.Skillset,
		emp.Username,
		emp.PasswordHash,
		emp.Role,
		emp.Status,
		emp.CreatedBy,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			l.WarnContext(ctx, "Username already taken")
			return 0, api.ErrConflict
		}
		span.SetStatus(codes.Error, "insert failed")
		l.ErrorContext(ctx, "Failed to register employee", slog.Any("error", err))
		return 0, fmt.Errorf("register employee: %w", err)
	}

	l.InfoContext(ctx, "Employee registered", slog.Int("employee_id", id))
	return id, nil
}

func (r *PostgresEmployeeRepo) GetByID(ctx context.Context, id int) (*Employee, error) {
	ctx, span := otel.Tracer("EmployeeRepo").Start(ctx, "GetByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.Int("db.employee.id", id),
	))
	defer span.End()

	row := r.db.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM sp_get_employee_by_id($1)`, id)

	emp, err := scanEmployeeRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("get employee by id: %w", err)
	}
	return emp, nil
}

func (r *PostgresEmployeeRepo) GetAll(ctx context.Context) ([]Employee, error) {
	ctx, span := otel.Tracer("EmployeeRepo").Start(ctx, "GetAll", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
	))
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT `+employeeColumns+` FROM sp_get_all_employees()`)
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("get all employees: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployeeRow(rows)
		if err != nil {
			span.SetStatus(codes.Error, "scan failed")
			return nil, fmt.Errorf("scan employee row: %w", err)
		}
		employees = append(employees, *emp)
	}
	if err := rows.Err(); err != nil {
		span.SetStatus(codes.Error, "rows iteration failed")
		return nil, fmt.Errorf("iterate employee rows: %w", err)
	}
	return employees, nil
}

func (r *PostgresEmployeeRepo) Update(ctx context.Context, emp *Employee) (bool, error) {
	ctx, span := otel.Tracer("EmployeeRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "employees"),
		attribute.Int("db.employee.id", emp.EmployeeID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Update"), slog.Int("employeeID", emp.EmployeeID))

	var count int
	err := r.db.QueryRow(ctx,
		`SELECT sp_update_employee($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		emp.EmployeeID,
		emp.Name,
		emp.Designation,
		emp.Address,
		emp.Department,
		joiningDateArg(emp.JoiningDate),
		emp.Skillset,
		emp.Status,
		emp.Role,
		emp.ModifiedBy,
	).Scan(&count)
	if err != nil {
		span.SetStatus(codes.Error, "update failed")
		l.ErrorContext(ctx, "Failed to update employee", slog.Any("error", err))
		return false, fmt.Errorf("update employee: %w", err)
	}

	l.DebugContext(ctx, "Employee update executed", slog.Int("updated_count", count))
	return count > 0, nil
}

// SetProfileImage mirrors the original store, which updates the image column
// with a plain parameterized statement rather than a stored procedure.
func (r *PostgresEmployeeRepo) SetProfileImage(ctx context.Context, id int, path *string) error {
	ctx, span := otel.Tracer("EmployeeRepo").Start(ctx, "SetProfileImage", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.Int("db.employee.id", id),
	))
	defer span.End()

	_, err := r.db.Exec(ctx,
		`UPDATE employees SET profile_image = $1 WHERE employee_id = $2`,
		path, id)
	if err != nil {
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("set profile image: %w", err)
	}
	return nil
}

func (r *PostgresEmployeeRepo) Delete(ctx context.Context, id int) (bool, error) {
	ctx, span := otel.Tracer("EmployeeRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.Int("db.employee.id", id),
	))
	defer span.End()

	var count int
	err := r.db.QueryRow(ctx, `SELECT sp_delete_employee($1)`, id).Scan(&count)
	if err != nil {
		span.SetStatus(codes.Error, "delete failed")
		return false, fmt.Errorf("delete employee: %w", err)
	}
	return count > 0, nil
}

// scanEmployeeRow maps one result row to a record. Every column is treated as
// nullable at this boundary; defaults are substituted only where the domain
// permits. An absent employee_id maps to 0.
func scanEmployeeRow(row pgx.Row) (*Employee, error) {
	var (
		id           *int
		name         *string
		username     *string
		passwordHash *string
		status       *string
		role         *string
		joiningDate  *time.Time
		emp          Employee
	)

	err := row.Scan(
		&id,
		&name,
		&emp.Designation,
		&emp.Address,
		&emp.Department,
		&joiningDate,
		&emp.Skillset,
		&username,
		&passwordHash,
		&status,
		&role,
		&emp.ProfileImage,
		&emp.CreatedBy,
		&emp.CreatedAt,
		&emp.ModifiedBy,
		&emp.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if id != nil {
		emp.EmployeeID = *id
	}
	if name != nil {
		emp.Name = *name
	}
	if username != nil {
		emp.Username = *username
	}
	if passwordHash != nil {
		emp.PasswordHash = *passwordHash
	}
	if status != nil {
		emp.Status = *status
	}
	if role != nil {
		emp.Role = *role
	}
	if joiningDate != nil {
		d := Date{joiningDate.UTC().Truncate(24 * time.Hour)}
		emp.JoiningDate = &d
	}
	return &emp, nil
}

// joiningDateArg converts the wire-level date to the typed nil the store
// expects for an unset column.
func joiningDateArg(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/laszhr/lasz/internal/domain"
)

// ShiftService implements domain.ShiftStore using PostgreSQL.
type ShiftService struct {
	db DBTX
}

var _ domain.ShiftStore = (*ShiftService)(nil)

// NewShiftService creates a new ShiftService.
func NewShiftService(db DBTX) *ShiftService {
	return &ShiftService{db: db}
}

// shiftQuerySQL renders q as a parameterised SELECT. The company predicate is
// always present.
func shiftQuerySQL(q domain.ShiftQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	add("s.company_id = $%d", q.CompanyID)
	if !q.StartFrom.IsZero() {
		add("s.start_time >= $%d", q.StartFrom)
	}
	if !q.EndUntil.IsZero() {
		add("s.end_time <= $%d", q.EndUntil)
	}
	if q.AssignedUserID != "" {
		add("s.assigned_user_id = $%d", q.AssignedUserID)
	}
	if q.PublishedOnly {
		where = append(where, "s.published")
	}

	sql := `SELECT s.id, s.company_id, s.employee_id, e.full_name, COALESCE(s.assigned_user_id::text, ''),
	COALESCE(s.department, ''), s.start_time, s.end_time,
	COALESCE(s.location, ''), COALESCE(s.role, ''), s.published, COALESCE(s.notes, '')
FROM shifts s
JOIN employees e ON e.id = s.employee_id
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY s.start_time ASC, s.id ASC`

	return sql, args
}

// ListShifts returns shifts matching q ordered by start time.
func (s *ShiftService) ListShifts(ctx context.Context, q domain.ShiftQuery) ([]domain.Shift, error) {
	const op = "postgres.shift.list"

	if q.CompanyID == "" {
		return nil, domain.ErrCompanyRequired
	}

	sql, args := shiftQuerySQL(q)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to query shifts")
	}

	shifts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Shift, error) {
		var sh domain.Shift
		err := row.Scan(
			&sh.ID, &sh.CompanyID, &sh.EmployeeID, &sh.EmployeeName, &sh.AssignedUserID,
			&sh.Department, &sh.StartTime, &sh.EndTime,
			&sh.Location, &sh.Role, &sh.Published, &sh.Notes,
		)
		return sh, err
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read shifts")
	}
	return shifts, nil
}

// ListEmployees returns a company's employees ordered by full name.
func (s *ShiftService) ListEmployees(ctx context.Context, companyID string) ([]domain.Employee, error) {
	const op = "postgres.employee.list"

	rows, err := s.db.Query(ctx, `
		SELECT id, company_id, COALESCE(user_id::text, ''), full_name, COALESCE(department, '')
		FROM employees
		WHERE company_id = $1
		ORDER BY full_name ASC, id ASC`, companyID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to query employees")
	}

	employees, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Employee, error) {
		var e domain.Employee
		err := row.Scan(&e.ID, &e.CompanyID, &e.UserID, &e.FullName, &e.Department)
		return e, err
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read employees")
	}
	return employees, nil
}

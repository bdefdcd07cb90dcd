package rota

import (
	"context"
	"log/slog"
	"sync"

	"github.com/laszhr/lasz/internal/changefeed"
	"github.com/laszhr/lasz/internal/domain"
	"github.com/laszhr/lasz/internal/telemetry"
)

// Filter narrows an already-fetched shift set. It never widens the query.
type Filter struct {
	Department string
	EmployeeID string
}

// Apply returns the shifts matching f, preserving order.
func (f Filter) Apply(shifts []domain.Shift) []domain.Shift {
	if f.Department == "" && f.EmployeeID == "" {
		return shifts
	}
	out := make([]domain.Shift, 0, len(shifts))
	for _, s := range shifts {
		if f.Department != "" && s.Department != f.Department {
			continue
		}
		if f.EmployeeID != "" && s.EmployeeID != f.EmployeeID {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Engine runs role-scoped rota queries.
type Engine struct {
	store  domain.ShiftStore
	feed   changefeed.Subscriber
	logger *slog.Logger
}

// NewEngine creates an Engine. feed may be nil, in which case Watch loads
// once and never refreshes.
func NewEngine(store domain.ShiftStore, feed changefeed.Subscriber, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		feed:   feed,
		logger: logger.With("component", "rota"),
	}
}

// QueryFor builds the store query for viewer over w.
func QueryFor(viewer domain.Viewer, w Window) (domain.ShiftQuery, error) {
	q := domain.ShiftQuery{StartFrom: w.Start, EndUntil: w.End}

	switch v := viewer.(type) {
	case domain.AdminViewer:
		q.CompanyID = v.CompanyID
	case domain.EmployeeViewer:
		q.CompanyID = v.CompanyID
		q.AssignedUserID = v.UserID
		q.PublishedOnly = true
	default:
		return domain.ShiftQuery{}, domain.Unauthorized("rota.query", "a signed-in viewer is required")
	}

	if q.CompanyID == "" {
		return domain.ShiftQuery{}, domain.ErrCompanyRequired
	}
	return q, nil
}

// visible re-checks a stored shift against the query and window that
// fetched it.
func visible(q domain.ShiftQuery, w Window, s domain.Shift) bool {
	if s.CompanyID != q.CompanyID || !w.ContainsShift(s) {
		return false
	}
	if q.AssignedUserID != "" && s.AssignedUserID != q.AssignedUserID {
		return false
	}
	if q.PublishedOnly && !s.Published {
		return false
	}
	return true
}

// Shifts returns the viewer's shifts in w ordered by start time, narrowed by f.
// Employees only see published shifts assigned to them; admins see every
// shift of their company.
func (e *Engine) Shifts(ctx context.Context, viewer domain.Viewer, w Window, f Filter) ([]domain.Shift, error) {
	q, err := QueryFor(viewer, w)
	if err != nil {
		return nil, err
	}

	shifts, err := e.store.ListShifts(ctx, q)
	if err != nil {
		return nil, domain.Internal(err, "rota.shifts", "failed to load shifts")
	}

	scoped := shifts[:0:0]
	for _, s := range shifts {
		if !visible(q, w, s) {
			e.logger.Warn("store returned shift outside viewer scope",
				"shift_id", s.ID,
				"company_id", q.CompanyID,
			)
			continue
		}
		scoped = append(scoped, s)
	}

	return f.Apply(scoped), nil
}

// Employees returns the viewer's company employees ordered by name.
func (e *Engine) Employees(ctx context.Context, viewer domain.Viewer) ([]domain.Employee, error) {
	if viewer == nil {
		return nil, domain.Unauthorized("rota.employees", "a signed-in viewer is required")
	}
	if viewer.Company() == "" {
		return nil, domain.ErrCompanyRequired
	}

	employees, err := e.store.ListEmployees(ctx, viewer.Company())
	if err != nil {
		return nil, domain.Internal(err, "rota.employees", "failed to load employees")
	}
	return employees, nil
}

// Departments returns the distinct non-empty departments of the viewer's
// employees, in employee-name order of first appearance.
func (e *Engine) Departments(ctx context.Context, viewer domain.Viewer) ([]string, error) {
	employees, err := e.Employees(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return Departments(employees), nil
}

// Departments extracts distinct non-empty departments from employees.
func Departments(employees []domain.Employee) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, emp := range employees {
		if emp.Department == "" || seen[emp.Department] {
			continue
		}
		seen[emp.Department] = true
		out = append(out, emp.Department)
	}
	return out
}

// UpdateFunc receives the full shift set after every refetch.
type UpdateFunc func(shifts []domain.Shift, err error)

// Watch loads the viewer's shifts for w, delivers them to fn, and refetches
// the whole window whenever a shift changes. Refreshes are delivered from a
// separate goroutine, one at a time.
//
// The returned release function stops the watch and drops the change
// subscription. It waits for an fn call in progress, and fn is never called
// once it has returned, so fn must not call release itself. It is safe to
// call more than once. Cancelling ctx has the same effect.
func (e *Engine) Watch(ctx context.Context, viewer domain.Viewer, w Window, f Filter, fn UpdateFunc) (func(), error) {
	shifts, err := e.Shifts(ctx, viewer, w, f)
	if err != nil {
		return nil, err
	}
	fn(shifts, nil)

	if e.feed == nil {
		return func() {}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	changes, unsubscribe := e.feed.Subscribe(changefeed.TableShifts)

	var (
		once    sync.Once
		mu      sync.Mutex // held while fn runs
		stopped bool
	)
	release := func() {
		once.Do(func() {
			cancel()
			mu.Lock()
			stopped = true
			mu.Unlock()
			unsubscribe()
			if telemetry.Business != nil {
				telemetry.Business.RotaSubscribers.Dec()
			}
		})
	}

	if telemetry.Business != nil {
		telemetry.Business.RotaSubscribers.Inc()
	}

	role := "employee"
	if domain.IsAdmin(viewer) {
		role = "admin"
	}

	go func() {
		defer release()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				shifts, err := e.Shifts(ctx, viewer, w, f)
				mu.Lock()
				if stopped || ctx.Err() != nil {
					mu.Unlock()
					return
				}
				if telemetry.Business != nil {
					telemetry.Business.RotaRefreshes.WithLabelValues(role).Inc()
				}
				if err != nil {
					e.logger.Error("rota refresh failed", "company_id", viewer.Company(), "error", err)
				}
				fn(shifts, err)
				mu.Unlock()
			}
		}
	}()

	return release, nil
}

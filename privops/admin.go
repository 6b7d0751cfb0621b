package privops

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/database"
	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/repository"
)

/* ========================================================================
 * Operator administration
 * ========================================================================
 * Operators are never self-service: only these calls, invoked by an
 * already-authorized operator, mutate them.
 * ======================================================================== */

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// CreateOperatorParams describes a new operator.
type CreateOperatorParams struct {
	Email            string
	DisplayName      string
	Password         string
	Role             Role
	TenantID         int64
	ExtraPermissions []string
}

// CreateOperator registers a new operator. actor is the performing
// operator, recorded in the audit trail.
func (m *Manager) CreateOperator(ctx context.Context, actor *Operator, p CreateOperatorParams, client ClientInfo) (*Operator, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if !emailRegex.MatchString(p.Email) {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "invalid operator email")
	}
	if !p.Role.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "unknown role: "+string(p.Role))
	}
	if err := ValidatePasswordStrength(p.Password); err != nil {
		return nil, err
	}

	exists, err := m.operators.Exists(ctx, "email = ?", p.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New(errors.ErrCodeAlreadyExists, "operator email already registered")
	}

	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	op := &Operator{
		Email:            p.Email,
		DisplayName:      p.DisplayName,
		PasswordHash:     hash,
		Role:             p.Role,
		TenantID:         p.TenantID,
		ExtraPermissions: database.StringList(p.ExtraPermissions),
		Active:           true,
	}
	if err := m.operators.Create(ctx, op); err != nil {
		return nil, err
	}

	m.audit(ctx, &audit.Entry{
		Operation:     audit.OpOperatorCreate,
		EntityType:    "operator",
		EntityID:      strconv.FormatInt(op.ID, 10),
		OperatorID:    actor.ID,
		OperatorEmail: actor.Email,
		Severity:      audit.SeverityWarning,
		After: audit.Snapshot(map[string]any{
			"email":     op.Email,
			"role":      op.Role,
			"tenant_id": op.TenantID,
		}),
	}, client)

	return op, nil
}

// SetOperatorActive enables or disables an operator. Disabling does not
// touch existing sessions; pair with TerminateAllSessions for a full
// revocation.
func (m *Manager) SetOperatorActive(ctx context.Context, actor *Operator, operatorID int64, active bool, client ClientInfo) error {
	target, err := m.operators.FindByID(ctx, operatorID)
	if err != nil {
		return err
	}
	if target.Active == active {
		return nil
	}

	if err := m.operators.UpdateByID(ctx, operatorID, map[string]any{
		"active": active,
	}, "active"); err != nil {
		return err
	}

	m.audit(ctx, &audit.Entry{
		Operation:     audit.OpOperatorUpdate,
		EntityType:    "operator",
		EntityID:      strconv.FormatInt(operatorID, 10),
		OperatorID:    actor.ID,
		OperatorEmail: actor.Email,
		Severity:      audit.SeverityWarning,
		Before:        audit.Snapshot(map[string]any{"active": target.Active}),
		After:         audit.Snapshot(map[string]any{"active": active}),
	}, client)

	return nil
}

// GetOperator returns one operator.
func (m *Manager) GetOperator(ctx context.Context, id int64) (*Operator, error) {
	return m.operators.FindByID(ctx, id)
}

// ListOperators returns one page of operators, newest first.
func (m *Manager) ListOperators(ctx context.Context, page, pageSize int) (*repository.PageResult[Operator], error) {
	opts := []repository.Option{repository.WithOrderBy("id DESC")}
	return m.operators.FindPageWithOpts(ctx, page, pageSize, "", opts)
}

package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/zooarc/menagerie/errors"
)

/* ========================================================================
 * Export
 * ======================================================================== */

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// exportPageSize bounds memory while walking the ledger.
const exportPageSize = 500

// Export streams all entries matching filter to w, newest first.
func (l *Ledger) Export(ctx context.Context, f Filter, format string, w io.Writer) error {
	switch format {
	case FormatJSON:
		return l.exportJSON(ctx, f, w)
	case FormatCSV:
		return l.exportCSV(ctx, f, w)
	default:
		return errors.New(errors.ErrCodeInvalidArgument, "unsupported export format: "+format)
	}
}

func (l *Ledger) exportJSON(ctx context.Context, f Filter, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	first := true
	err := l.walk(ctx, f, func(e *Entry) error {
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		first = false
		return enc.Encode(e)
	})
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, "]")
	return err
}

var csvHeader = []string{
	"id", "operation", "entity_type", "entity_id", "operator_id",
	"operator_email", "correlation_id", "occurred_at", "tenant_id",
	"impersonated_tenant_id", "client_ip", "user_agent", "severity",
	"integrity_hash",
}

func (l *Ledger) exportCSV(ctx context.Context, f Filter, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	err := l.walk(ctx, f, func(e *Entry) error {
		return cw.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.Operation,
			e.EntityType,
			e.EntityID,
			strconv.FormatInt(e.OperatorID, 10),
			e.OperatorEmail,
			e.CorrelationID,
			e.OccurredAt.UTC().Format(time.RFC3339Nano),
			strconv.FormatInt(e.TenantID, 10),
			strconv.FormatInt(e.ImpersonatedTenantID, 10),
			e.ClientIP,
			e.UserAgent,
			string(e.Severity),
			e.IntegrityHash,
		})
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// walk visits every matching entry page by page.
func (l *Ledger) walk(ctx context.Context, f Filter, visit func(*Entry) error) error {
	f.Page = 1
	f.PageSize = exportPageSize

	for {
		page, err := l.Query(ctx, f)
		if err != nil {
			return err
		}
		for i := range page.List {
			if err := visit(&page.List[i]); err != nil {
				return err
			}
		}
		if int64(f.Page) >= page.Pages {
			return nil
		}
		f.Page++
	}
}

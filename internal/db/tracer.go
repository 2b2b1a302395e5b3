package db

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

const maxTracedStatement = 512

type spanKey struct{}

// sqlTracer opens a db.query span for every statement issued while a sentry
// span is active on the context. Statements outside a request are ignored.
type sqlTracer struct{}

func (sqlTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if sentry.SpanFromContext(ctx) == nil {
		return ctx
	}

	statement := compactStatement(data.SQL)
	span := sentry.StartSpan(ctx, "db.query",
		sentry.WithDescription(statement),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	span.SetData("db.system", "postgresql")
	if verb, _, ok := strings.Cut(statement, " "); ok {
		span.SetData("db.operation", strings.ToUpper(verb))
	}
	if strings.Contains(statement, "processed_webhook_events") {
		span.SetData("db.collection.name", "processed_webhook_events")
	}

	return context.WithValue(span.Context(), spanKey{}, span)
}

func (sqlTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(spanKey{}).(*sentry.Span)
	if !ok {
		return
	}
	defer span.Finish()

	if data.Err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("db.error", data.Err.Error())
		return
	}
	span.Status = sentry.SpanStatusOK
	span.SetData("db.rows_affected", data.CommandTag.RowsAffected())
}

// compactStatement collapses whitespace so multi-line SQL literals read as
// one line in traces.
func compactStatement(sql string) string {
	statement := strings.Join(strings.Fields(sql), " ")
	if statement == "" {
		return "sql.query"
	}
	if len(statement) > maxTracedStatement {
		statement = statement[:maxTracedStatement]
	}
	return statement
}

// Package batch implements the batch/commit/broadcast loop: once per
// tick it drains the command queue, applies every record to the
// document under its exclusive lock, commits a new version, formats a
// delta, appends it to the audit log and broadcasts it to every active
// session, in that order, following a queue → document → registry →
// audit-log lock order throughout.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/collabmd/server/internal/auditlog"
	"github.com/collabmd/server/internal/document"
	"github.com/collabmd/server/internal/editapi"
	"github.com/collabmd/server/internal/queue"
	"github.com/collabmd/server/internal/registry"
	"github.com/collabmd/server/internal/roles"
	"github.com/prometheus/client_golang/prometheus"
)

// resultUnauthorised is the one textual result editapi never produces
// itself (see editapi.Service.Apply's doc comment) because permission is
// a batch-loop concern, decided before a command ever reaches the
// segment store.
const resultUnauthorised = "Reject UNAUTHORISED"

// Loop owns the tick timer and every service it wires together.
type Loop struct {
	queue    *queue.Queue[Record]
	doc      *document.Document
	svc      *editapi.Service
	registry *registry.Registry
	audit    *auditlog.Service
	interval time.Duration
	metrics  *batchMetrics
	logger   *slog.Logger
}

// NewLoop wires a tick loop over the given interval. promReg may be nil, in
// which case metrics are computed but never exposed on a /metrics
// endpoint.
func NewLoop(
	q *queue.Queue[Record],
	doc *document.Document,
	svc *editapi.Service,
	reg *registry.Registry,
	audit *auditlog.Service,
	interval time.Duration,
	promReg prometheus.Registerer,
	logger *slog.Logger,
) *Loop {
	return &Loop{
		queue:    q,
		doc:      doc,
		svc:      svc,
		registry: reg,
		audit:    audit,
		interval: interval,
		metrics:  newBatchMetrics(promReg),
		logger:   logger,
	}
}

// Run blocks, ticking every l.interval until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.tick()
		}
	}
}

// tick drains the queue, applies every record, commits once, then
// formats, persists and broadcasts the resulting delta. The sleep
// between ticks is the ticker itself.
func (l *Loop) tick() {
	records := l.queue.Drain()
	if len(records) == 0 {
		return
	}

	start := time.Now()

	l.doc.Lock()
	defer l.doc.Unlock()

	lines := make([]string, 0, len(records))
	for _, rec := range records {
		result := l.dispatch(rec)
		lines = append(lines, fmt.Sprintf("EDIT %s %s %s", rec.User, rec.Line, result))
		l.metrics.commandsProcessed.WithLabelValues(result).Inc()
	}

	l.doc.Commit()
	delta := formatDelta(l.doc.Version(), lines)

	if err := l.audit.Append([]byte(delta)); err != nil && l.logger != nil {
		l.logger.Error("audit append failed", "error", err)
	}
	l.registry.Broadcast(delta)

	l.metrics.ticksProcessed.Inc()
	l.metrics.activeSessions.Set(float64(l.registry.Count()))
	l.metrics.tickDuration.Observe(time.Since(start).Seconds())
}

// dispatch resolves one record to its textual result: a permission check
// against the session registry, then parsing and dispatch to the edit
// API.
func (l *Loop) dispatch(rec Record) string {
	role, ok := l.registry.Permission(rec.SessionID)
	if !ok || role != roles.RoleWrite {
		return resultUnauthorised
	}

	cmd, err := editapi.Parse(rec.Line)
	if err != nil {
		return editapi.ResultInvalidPosition.String()
	}
	return l.svc.Apply(l.doc, cmd).String()
}

func formatDelta(version uint64, lines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VERSION %d\n", version)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("END\n")
	return b.String()
}

// Package reviewflow is a two-tier file approval workflow engine: submitted
// files pass a team-leader review and then an administrator review before
// they count as approved. The engine is a library; it owns the record
// collections, the state machine, the per-user overlays, and the
// notification feed, and leaves presentation, authentication, and physical
// file transfer to its callers.
package reviewflow

import (
	"fmt"

	"reviewflow/internal/adapter/collab"
	"reviewflow/internal/adapter/feed/redisfeed"
	"reviewflow/internal/adapter/repository/jsondoc"
	"reviewflow/internal/adapter/repository/sqlite"
	"reviewflow/internal/config"
	domaincollab "reviewflow/internal/domain/collab"
	"reviewflow/internal/domain/notification"
	"reviewflow/internal/domain/record"
	"reviewflow/internal/infrastructure/cache"
	"reviewflow/internal/taskqueue"
	"reviewflow/internal/usecase/review"
	"reviewflow/internal/usecase/submission"
)

// Engine bundles the gateways over one shared set of stores. Construct it
// once per process and pass it by reference; every durable mutation funnels
// through the per-collection locks inside its store.
type Engine struct {
	Submissions   *submission.Gateway
	Reviews       *review.Gateway
	Notifications notification.Feed

	queue *taskqueue.Queue
}

// Option overrides a default collaborator before the gateways are built.
type Option func(*builder)

type builder struct {
	files     domaincollab.FileOracle
	directory domaincollab.TeamDirectory
	audit     domaincollab.AuditSink
	feed      notification.Feed
}

func WithFileOracle(o domaincollab.FileOracle) Option {
	return func(b *builder) { b.files = o }
}

func WithTeamDirectory(d domaincollab.TeamDirectory) Option {
	return func(b *builder) { b.directory = d }
}

func WithAuditSink(s domaincollab.AuditSink) Option {
	return func(b *builder) { b.audit = s }
}

func WithFeed(f notification.Feed) Option {
	return func(b *builder) { b.feed = f }
}

func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("reviewflow: %w", err)
	}

	b := &builder{
		files:     collab.OSFileOracle{},
		directory: collab.NewStaticTeamDirectory(nil),
		audit:     collab.LogAuditSink{},
	}
	for _, opt := range opts {
		opt(b)
	}

	var records record.Store
	var comments record.CommentStore
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath())
		if err != nil {
			return nil, fmt.Errorf("reviewflow: %w", err)
		}
		records, comments = s, s
	default:
		s, err := jsondoc.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("reviewflow: %w", err)
		}
		records, comments = s, s
	}

	overlays, err := jsondoc.NewOverlayStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("reviewflow: %w", err)
	}

	feed := b.feed
	if feed == nil {
		if cfg.RedisAddr != "" {
			rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
			if err != nil {
				return nil, fmt.Errorf("reviewflow: %w", err)
			}
			feed = redisfeed.New(rdb)
		} else {
			f, err := jsondoc.NewFeed(cfg.DataDir)
			if err != nil {
				return nil, fmt.Errorf("reviewflow: %w", err)
			}
			feed = f
		}
	}

	queue := taskqueue.New(cfg.QueueWorkers, taskqueue.WithRetries(cfg.QueueRetries))

	return &Engine{
		Submissions:   submission.NewGateway(records, comments, overlays, b.files, b.directory, b.audit, cfg.DefaultTeam),
		Reviews:       review.NewGateway(records, comments, feed, queue, b.audit),
		Notifications: feed,
		queue:         queue,
	}, nil
}

// Flush blocks until queued side effects (notification appends) have been
// delivered or dropped.
func (e *Engine) Flush() { e.queue.Drain() }

// Close drains the side-effect queue and stops its workers.
func (e *Engine) Close() { e.queue.Close() }

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"fintrack/internal/dashboard"
	"fintrack/internal/filter"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/source"
	"fintrack/internal/taxonomy"
)

// OpenFunc connects to the transaction source. The returned cleanup may be nil.
type OpenFunc func(ctx context.Context) (source.Source, func() error, error)

// Env is what every subcommand runs against. The source is opened on
// first use so commands that do not need it never touch the backend.
type Env struct {
	Out      io.Writer
	Err      io.Writer
	Taxonomy taxonomy.Table
	Logger   *log.Logger
	// Plain prints markdown as is instead of rendering it for the terminal.
	Plain bool
	// Notifier is told about successful mutations. Optional.
	Notifier services.RefreshNotifier
	Open     OpenFunc

	once    sync.Once
	src     source.Source
	cleanup func() error
	openErr error
}

func (e *Env) source(ctx context.Context) (source.Source, error) {
	e.once.Do(func() {
		if e.Open == nil {
			e.openErr = errors.New("no transaction source configured")
			return
		}
		e.src, e.cleanup, e.openErr = e.Open(ctx)
	})
	return e.src, e.openErr
}

func (e *Env) logger() *log.Logger {
	if e.Logger == nil {
		return log.Discard()
	}
	return e.Logger
}

// Close releases the source if it was opened.
func (e *Env) Close() error {
	if e.cleanup == nil {
		return nil
	}
	return e.cleanup()
}

// load runs one dashboard cycle for f.
func (e *Env) load(ctx context.Context, f filter.Filter) (*dashboard.View, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	view, err := dashboard.NewLoader(src, e.logger()).Load(ctx, f)
	if err != nil {
		return nil, err
	}
	e.logger().DebugContext(ctx, "Transactions listed",
		log.FieldOperation, log.OpList, log.FieldFilter, f.Encode(), "transactions", len(view.Rows))
	return view, nil
}

func (e *Env) service(ctx context.Context) (*services.TransactionService, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewTransactionService(src, e.Notifier, nil, e.logger()), nil
}

func (e *Env) printMarkdown(md string) {
	if e.Plain {
		fmt.Fprint(e.Out, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Fprint(e.Out, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(e.Out, md)
		return
	}
	fmt.Fprint(e.Out, out)
}

func (e *Env) fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, format+"\n", args...)
	return subcommands.ExitFailure
}

func (e *Env) usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, format+"\n", args...)
	return subcommands.ExitUsageError
}

// NewEnv returns an Env writing to the process's stdout and stderr.
func NewEnv(tax taxonomy.Table, logger *log.Logger, open OpenFunc) *Env {
	return &Env{
		Out:      os.Stdout,
		Err:      os.Stderr,
		Taxonomy: tax,
		Logger:   logger,
		Open:     open,
	}
}

// Register adds every terminal subcommand to c.
func Register(c *subcommands.Commander, env *Env) {
	for _, cmd := range []subcommands.Command{
		&listCmd{env: env},
		&summaryCmd{env: env},
		&trendCmd{env: env},
		&breakdownCmd{env: env},
		&categoriesCmd{env: env},
	} {
		c.Register(cmd, "view")
	}
	for _, cmd := range []subcommands.Command{
		&addCmd{env: env},
		&editCmd{env: env},
		&deleteCmd{env: env},
	} {
		c.Register(cmd, "transactions")
	}
}

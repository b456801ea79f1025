package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/filter"
	"fintrack/internal/report"
)

// filterFlags are the dashboard filter inputs shared by the view commands.
type filterFlags struct {
	from, to, kind, category string
}

func (ff *filterFlags) register(f *flag.FlagSet) {
	f.StringVar(&ff.from, "from", "", "Start date, inclusive (YYYY-MM-DD).")
	f.StringVar(&ff.to, "to", "", "End date, inclusive (YYYY-MM-DD).")
	f.StringVar(&ff.kind, "type", filter.All, "Transaction type: income, expense or all.")
	f.StringVar(&ff.category, "category", filter.All, "Category name or all.")
}

func (ff *filterFlags) filter() filter.Filter {
	return filter.New(ff.from, ff.to, ff.kind, ff.category)
}

// run validates the flags, prints any category hint and loads a view.
func (ff *filterFlags) run(ctx context.Context, env *Env) (*dashboard.View, subcommands.ExitStatus) {
	f := ff.filter()
	if f.Type != "" {
		if _, ok := core.ParseKind(f.Type); !ok {
			return nil, env.usage("invalid -type %q: want income, expense or all", ff.kind)
		}
	}
	if hint := categoryHint(env, "", f.Category); hint != "" {
		fmt.Fprintln(env.Err, hint)
	}
	view, err := env.load(ctx, f)
	if err != nil {
		return nil, env.fail("Error loading transactions: %v", err)
	}
	return view, subcommands.ExitSuccess
}

// categoryHint warns about a category missing from the table, suggesting
// the closest known name.
func categoryHint(env *Env, kind core.Kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || env.Taxonomy.Contains(kind, name) {
		return ""
	}
	if env.Taxonomy.Contains("", name) {
		return "warning: " + quote(name) + " is not an " + string(kind) + " category"
	}
	if s, ok := env.Taxonomy.Suggest(name); ok {
		return "warning: unknown category " + quote(name) + ", did you mean " + quote(s) + "?"
	}
	return "warning: unknown category " + quote(name)
}

func quote(s string) string { return `"` + s + `"` }

type listCmd struct {
	env *Env
	filterFlags
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list transactions, newest first" }
func (*listCmd) Usage() string {
	return `fintrack list [-from <date>] [-to <date>] [-type <type>] [-category <name>]

  Lists the transactions matching the filter, newest first.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	view, status := c.run(ctx, c.env)
	if status != subcommands.ExitSuccess {
		return status
	}
	c.env.printMarkdown(report.Filter(view.Filter) + "\n" + report.Transactions(view.Rows) + "\n" + report.Skipped(view.Skipped))
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	env *Env
	filterFlags
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show income, expense and balance totals" }
func (*summaryCmd) Usage() string {
	return `fintrack summary [-from <date>] [-to <date>] [-type <type>] [-category <name>]

  Shows the totals for the filter. Income is green, expenses are red and
  the balance is coloured by its sign.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	view, status := c.run(ctx, c.env)
	if status != subcommands.ExitSuccess {
		return status
	}
	if c.env.Plain {
		c.env.printMarkdown(report.Totals(view.Totals, view.Summary.Totals, view.TotalsMismatch))
		return subcommands.ExitSuccess
	}
	fmt.Fprintln(c.env.Out, renderTotals(view.Totals))
	if view.TotalsMismatch {
		fmt.Fprintln(c.env.Err, "warning: backend summary totals differ from the listed transactions")
	}
	return subcommands.ExitSuccess
}

type trendCmd struct {
	env *Env
	filterFlags
}

func (*trendCmd) Name() string     { return "trend" }
func (*trendCmd) Synopsis() string { return "show income, expenses and balance per month" }
func (*trendCmd) Usage() string {
	return `fintrack trend [-from <date>] [-to <date>] [-type <type>] [-category <name>]

  Shows one row per calendar month, oldest first.
`
}

func (c *trendCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *trendCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	view, status := c.run(ctx, c.env)
	if status != subcommands.ExitSuccess {
		return status
	}
	c.env.printMarkdown(report.Trend(view.Trend))
	return subcommands.ExitSuccess
}

type breakdownCmd struct {
	env *Env
	filterFlags
}

func (*breakdownCmd) Name() string     { return "breakdown" }
func (*breakdownCmd) Synopsis() string { return "show amounts and shares per category" }
func (*breakdownCmd) Usage() string {
	return `fintrack breakdown [-from <date>] [-to <date>] [-type <type>] [-category <name>]

  Shows expense and income totals per category with their percentage of
  the kind total, largest first.
`
}

func (c *breakdownCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *breakdownCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	view, status := c.run(ctx, c.env)
	if status != subcommands.ExitSuccess {
		return status
	}
	c.env.printMarkdown(report.Breakdown("Expenses by category", view.ExpenseBreakdown) + "\n" +
		report.Breakdown("Income by category", view.IncomeBreakdown))
	return subcommands.ExitSuccess
}

type categoriesCmd struct {
	env  *Env
	kind string
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list selectable categories" }
func (*categoriesCmd) Usage() string {
	return `fintrack categories [-type <type>]

  Lists the categories offered for income, expenses or both.
`
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "type", filter.All, "Transaction type: income, expense or all.")
}

func (c *categoriesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var kind core.Kind
	if !strings.EqualFold(strings.TrimSpace(c.kind), filter.All) {
		k, ok := core.ParseKind(c.kind)
		if !ok {
			return c.env.usage("invalid -type %q: want income, expense or all", c.kind)
		}
		kind = k
	}
	c.env.printMarkdown(report.Categories(c.env.Taxonomy, kind))
	return subcommands.ExitSuccess
}

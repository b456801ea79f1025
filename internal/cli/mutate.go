package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/source"
)

// draftFlags are the transaction form inputs for add and edit.
type draftFlags struct {
	title, amount, kind, category, date string
}

func (d *draftFlags) register(f *flag.FlagSet) {
	f.StringVar(&d.title, "title", "", "Transaction title (required).")
	f.StringVar(&d.amount, "amount", "", "Amount, sign is set from -type (required).")
	f.StringVar(&d.kind, "type", string(core.Expense), "Transaction type: income or expense.")
	f.StringVar(&d.category, "category", "", "Category. Defaults to Other Income or Other Expense.")
	f.StringVar(&d.date, "date", time.Now().Format(core.DateLayout), "Date (YYYY-MM-DD).")
}

func (d *draftFlags) draft() core.Draft {
	return core.Draft{Title: d.title, Amount: d.amount, Type: d.kind, Category: d.category, Date: d.date}
}

// hint warns when the category is unknown for the chosen type.
func (d *draftFlags) hint(env *Env) {
	kind, _ := core.ParseKind(d.kind)
	if h := categoryHint(env, kind, d.category); h != "" {
		fmt.Fprintln(env.Err, h)
	}
}

// printOutcome prints the result of a mutation and maps it to an exit status.
func printOutcome(env *Env, verb, success string, res core.Result, err error) subcommands.ExitStatus {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		for _, p := range verr.Problems {
			fmt.Fprintf(env.Err, "  -%s: %v\n", p.Field, p.Err)
		}
		return subcommands.ExitUsageError
	case errors.Is(err, source.ErrReadOnly):
		return env.fail("Error %s transaction: the configured source is read-only", verb)
	case err != nil:
		if _, ok := source.IsRejected(err); ok {
			return env.fail("%s", services.FailureMessage(verb, err))
		}
		return env.fail("%s (%v)", services.FailureMessage(verb, err), err)
	}
	if res.Transaction != nil && res.Transaction.ID != "" {
		fmt.Fprintf(env.Out, "%s (id %s)\n", success, res.Transaction.ID)
	} else {
		fmt.Fprintln(env.Out, success)
	}
	return subcommands.ExitSuccess
}

type addCmd struct {
	env *Env
	draftFlags
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a new transaction" }
func (*addCmd) Usage() string {
	return `fintrack add -title <title> -amount <amount> [-type income|expense] [-category <name>] [-date <date>]

  Records a new transaction. Expense amounts are stored negative and
  income amounts positive whatever sign is typed.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	c.hint(c.env)
	svc, err := c.env.service(ctx)
	if err != nil {
		return c.env.fail("Error saving transaction: %v", err)
	}
	res, err := svc.Create(ctx, c.draft())
	return printOutcome(c.env, "saving", services.MsgAdded, res, err)
}

type editCmd struct {
	env *Env
	draftFlags
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "replace an existing transaction" }
func (*editCmd) Usage() string {
	return `fintrack edit -title <title> -amount <amount> [-type income|expense] [-category <name>] [-date <date>] <id>

  Replaces every field of the transaction with the given id.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, status := idArg(c.env, f)
	if status != subcommands.ExitSuccess {
		return status
	}
	c.hint(c.env)
	svc, err := c.env.service(ctx)
	if err != nil {
		return c.env.fail("Error updating transaction: %v", err)
	}
	res, err := svc.Update(ctx, id, c.draft())
	return printOutcome(c.env, "updating", services.MsgUpdated, res, err)
}

type deleteCmd struct {
	env *Env
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction" }
func (*deleteCmd) Usage() string {
	return `fintrack delete <id>

  Deletes the transaction with the given id.
`
}

func (*deleteCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, status := idArg(c.env, f)
	if status != subcommands.ExitSuccess {
		return status
	}
	svc, err := c.env.service(ctx)
	if err != nil {
		return c.env.fail("Error deleting transaction: %v", err)
	}
	res, err := svc.Delete(ctx, id)
	return printOutcome(c.env, "deleting", services.MsgDeleted, res, err)
}

func idArg(env *Env, f *flag.FlagSet) (core.ID, subcommands.ExitStatus) {
	if f.NArg() != 1 || strings.TrimSpace(f.Arg(0)) == "" {
		return "", env.usage("expected exactly one transaction id")
	}
	return core.ID(strings.TrimSpace(f.Arg(0))), subcommands.ExitSuccess
}

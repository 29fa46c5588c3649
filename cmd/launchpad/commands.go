package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/config"
	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/reconcile"
	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// errFindings marks a reconciliation that completed with findings.
var errFindings = errors.New("launchpad: reconciliation found invariant violations")

// env is what every store-backed command works with.
type env struct {
	cfg    *config.Config
	store  store.Store
	logger *slog.Logger
	out    *printer
}

func open(ctx context.Context, g globals, stdout, stderr io.Writer) (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	s, err := cfg.Store.Open(ctx)
	if err != nil {
		return nil, err
	}
	out, err := newPrinter(stdout, g.output)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return &env{cfg: cfg, store: s, logger: cfg.Logger(stderr), out: out}, nil
}

func (e *env) close() { _ = e.store.Close() }

func parseFlags(fs *pflag.FlagSet, args []string, stderr io.Writer) error {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

// ──────────────────────────────────────────────────
// migrate
// ──────────────────────────────────────────────────

func runMigrate(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}

	e, err := open(ctx, g, stdout, stderr)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", launchpad.ErrMigrationFailed, err)
	}
	e.logger.Info("migrations applied", "driver", e.cfg.Store.Driver)

	result := map[string]string{"driver": e.cfg.Store.Driver, "status": "migrated"}
	return e.out.print(result, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%s store migrated\n", e.cfg.Store.Driver)
	})
}

// ──────────────────────────────────────────────────
// schedules
// ──────────────────────────────────────────────────

func runSchedules(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	var opts vesting.ListOpts
	fs := pflag.NewFlagSet("schedules", pflag.ContinueOnError)
	fs.StringVar(&opts.Group, "group", "", "only schedules in this group")
	fs.IntVar(&opts.Limit, "limit", 100, "maximum schedules to list")
	fs.IntVar(&opts.Offset, "offset", 0, "schedules to skip")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}

	e, err := open(ctx, g, stdout, stderr)
	if err != nil {
		return err
	}
	defer e.close()

	list, err := e.store.ListSchedules(ctx, opts)
	if err != nil {
		return err
	}
	return e.out.print(list, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "BENEFICIARY\tTOTAL\tPRINCIPAL\tRELEASED\tCLAIMED\tTGE BPS\tTGE CLAIMED\tCLIFF\tDURATION\tGROUP")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%t\t%s\t%s\t%s\n",
				s.Beneficiary.Hex(),
				types.FormatAmount(s.TotalAllocation),
				types.FormatAmount(s.VestingPrincipal),
				types.FormatAmount(s.Released),
				types.FormatAmount(s.ClaimedTotal),
				s.TGEBps, s.TGEClaimed, s.Cliff, s.Duration, s.Group)
		}
	})
}

// ──────────────────────────────────────────────────
// presales
// ──────────────────────────────────────────────────

func runPresales(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	var opts presale.ListOpts
	fs := pflag.NewFlagSet("presales", pflag.ContinueOnError)
	fs.IntVar(&opts.Limit, "limit", 100, "maximum presales to list")
	fs.IntVar(&opts.Offset, "offset", 0, "presales to skip")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}

	e, err := open(ctx, g, stdout, stderr)
	if err != nil {
		return err
	}
	defer e.close()

	list, err := e.store.ListPresales(ctx, opts)
	if err != nil {
		return err
	}
	now := time.Now()
	return e.out.print(list, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tPHASE\tPRICE\tTO SELL\tREMAINING\tSTART\tEND\tWHITELIST\tPAUSED\tVESTED")
		for _, p := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%t\t%t\t%t\n",
				p.ID, p.Phase(now),
				types.FormatAmount(p.Price),
				types.FormatAmount(p.TokensToSell),
				types.FormatAmount(p.TokensRemaining),
				p.StartTime.UTC().Format(time.RFC3339),
				p.EndTime.UTC().Format(time.RFC3339),
				p.WhitelistEnabled, p.Paused, p.DeferToVesting)
		}
	})
}

// ──────────────────────────────────────────────────
// events
// ──────────────────────────────────────────────────

func runEvents(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	var (
		opts           event.ListOpts
		ledger, kind   string
		subject, since string
	)
	fs := pflag.NewFlagSet("events", pflag.ContinueOnError)
	fs.StringVar(&ledger, "ledger", "", "vesting or presale")
	fs.StringVar(&kind, "kind", "", "event kind, e.g. vesting.released")
	fs.StringVar(&subject, "subject", "", "subject address")
	fs.Uint64Var(&opts.PresaleID, "presale", 0, "presale id")
	fs.StringVar(&since, "since", "", "RFC 3339 time or a duration back from now, e.g. 24h")
	fs.IntVar(&opts.Limit, "limit", 100, "maximum records to list")
	fs.IntVar(&opts.Offset, "offset", 0, "records to skip")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}

	opts.Ledger = event.Ledger(ledger)
	opts.Kind = event.Kind(kind)
	if subject != "" {
		if !common.IsHexAddress(subject) {
			return fmt.Errorf("%w: invalid subject address %q", errUsage, subject)
		}
		opts.Subject = common.HexToAddress(subject)
	}
	if since != "" {
		t, err := parseSince(since, time.Now())
		if err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		opts.Since = t
	}

	e, err := open(ctx, g, stdout, stderr)
	if err != nil {
		return err
	}
	defer e.close()

	list, err := e.store.ListEvents(ctx, opts)
	if err != nil {
		return err
	}
	return e.out.print(list, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "TIME\tKIND\tACTOR\tSUBJECT\tPRESALE\tFIELDS")
		for _, r := range list {
			subject := ""
			if r.Subject != (common.Address{}) {
				subject = r.Subject.Hex()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				r.OccurredAt.UTC().Format(time.RFC3339), r.Kind, r.Actor.Hex(), subject, r.PresaleID, fields(r.Fields))
		}
	})
}

func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q", s)
	}
	return t, nil
}

func fields(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, " ")
}

// ──────────────────────────────────────────────────
// reconcile
// ──────────────────────────────────────────────────

func runReconcile(ctx context.Context, g globals, args []string, stdout, stderr io.Writer) error {
	var watch string
	fs := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	fs.StringVar(&watch, "watch", "", "keep running on this cron schedule instead of checking once")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}

	e, err := open(ctx, g, stdout, stderr)
	if err != nil {
		return err
	}
	defer e.close()

	opts := append(e.cfg.Options(), launchpad.WithLogger(e.logger))
	lp := launchpad.New(e.store, opts...)
	auditor := reconcile.NewAuditor(lp, reconcile.WithLogger(e.logger), reconcile.WithPageSize(e.cfg.Reconcile.PageSize))

	if watch == "" {
		r, err := auditor.Check(ctx)
		if err != nil {
			return err
		}
		if err := printReport(e.out, r); err != nil {
			return err
		}
		if !r.OK() {
			return errFindings
		}
		return nil
	}

	s, err := reconcile.NewScheduler(ctx, auditor, watch)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	s.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

func printReport(p *printer, r *reconcile.Report) error {
	return p.print(r, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "report\t%s\n", r.ID)
		fmt.Fprintf(tw, "checked at\t%s\n", r.CheckedAt.Format(time.RFC3339))
		fmt.Fprintf(tw, "schedules\t%d\n", r.Schedules)
		fmt.Fprintf(tw, "presales\t%d\n", r.Presales)
		fmt.Fprintf(tw, "allocated\t%s (sum %s)\n", types.FormatAmount(r.GlobalAllocated), types.FormatAmount(r.SumAllocated))
		fmt.Fprintf(tw, "claimed\t%s (sum %s)\n", types.FormatAmount(r.GlobalClaimed), types.FormatAmount(r.SumClaimed))
		if r.CustodyBalance != nil {
			fmt.Fprintf(tw, "custody\t%s\n", r.CustodyBalance)
		}
		if r.OK() {
			fmt.Fprintln(tw, "status\tok")
			return
		}
		fmt.Fprintf(tw, "status\t%d findings\n", len(r.Findings))
		for _, f := range r.Findings {
			fmt.Fprintf(tw, "  %s\t%s: %s\n", f.Check, f.Subject, f.Detail)
		}
	})
}

// ──────────────────────────────────────────────────
// config
// ──────────────────────────────────────────────────

func runConfig(g globals, args []string, stdout, stderr io.Writer) error {
	var force bool
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	rest := fs.Args()
	if len(rest) == 0 || rest[0] != "init" || len(rest) > 2 {
		return fmt.Errorf("%w: expected: config init [path]", errUsage)
	}
	path := "launchpad.yaml"
	if len(rest) == 2 {
		path = rest[1]
	} else if g.configPath != "" {
		path = g.configPath
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("launchpad: %s exists; use --force to overwrite", path)
	}
	if err := config.Write(path, config.Default()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(stdout, "wrote %s\n", path)
	return err
}

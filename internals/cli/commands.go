package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"longessay_backend/internals/configs"
	database "longessay_backend/internals/databases"
	"longessay_backend/internals/features/correction/scheduler"
	"longessay_backend/internals/features/correction/service"
	"longessay_backend/internals/features/correction/tokens"
	authMiddleware "longessay_backend/internals/middlewares/auth"
	"longessay_backend/internals/seeds"
	correction "longessay_backend/internals/seeds/correction"
)

/* =========================================================
   migrate
========================================================= */

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the correction tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if b.DB == nil {
				return fmt.Errorf("migrate needs the postgres driver")
			}
			if err := database.Migrate(b.DB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

/* =========================================================
   import
========================================================= */

func (a *app) importCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <task.yaml>...",
		Short: "Import task files (catalogue, correctors, items)",
		Long: `Import one or more task files into the store. Rows are upserted,
so importing a changed file again updates it in place.

Example:
  longessayctl import tasks/exam-2024.yaml
  longessayctl import --dry-run tasks/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				for _, f := range args {
					ts, err := correction.LoadTaskFile(f)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: task %s ok (%d rows)\n", f, ts.Task.Key, len(ts.Rows()))
				}
				return nil
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if err := seeds.RunAllSeeds(cmd.Context(), b.Seeder, args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d file(s)\n", len(args))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only parse and check the files")
	return cmd
}

/* =========================================================
   purge-tokens
========================================================= */

func (a *app) purgeTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired data and file tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			n, err := scheduler.PurgeOnce(cmd.Context(), tokens.NewGate(b.Tokens, 0, 0))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d token(s)\n", n)
			return nil
		},
	}
}

/* =========================================================
   escalation
========================================================= */

type escalationRow struct {
	Item           string   `yaml:"item"`
	State          string   `yaml:"state"`
	Correctors     int      `yaml:"correctors"`
	Authorized     int      `yaml:"authorized"`
	Distance       *float64 `yaml:"distance,omitempty"`
	CombinedPoints *float64 `yaml:"combined_points,omitempty"`
	FinalPoints    *float64 `yaml:"final_points,omitempty"`
	FinalGradeKey  *string  `yaml:"final_grade,omitempty"`
}

func (a *app) escalationCmd() *cobra.Command {
	var taskKey string
	var onlyAwaiting bool
	cmd := &cobra.Command{
		Use:   "escalation [item-key]...",
		Short: "Show the escalation state of items",
		Long: `Evaluate items the way the stitch view does and print the result as YAML.

Example:
  longessayctl escalation --task exam-2024 --awaiting
  longessayctl escalation item-17 item-18`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskKey == "" && len(args) == 0 {
				return fmt.Errorf("give item keys or --task")
			}
			ctx := cmd.Context()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			keys := append([]string(nil), args...)
			if taskKey != "" {
				items, err := b.Store.ListCorrectionItems(ctx, taskKey, "")
				if err != nil {
					return err
				}
				for _, it := range items {
					keys = append(keys, it.ItemKey)
				}
			}

			rows, err := evaluateAll(ctx, service.New(b.Store, nil, nil, nil), keys, onlyAwaiting)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(rows)
			if err != nil {
				return fmt.Errorf("marshal: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&taskKey, "task", "", "evaluate every item of a task")
	cmd.Flags().BoolVar(&onlyAwaiting, "awaiting", false, "only list items awaiting a stitch decision")
	return cmd
}

func evaluateAll(ctx context.Context, svc *service.CorrectionService, keys []string, onlyAwaiting bool) ([]escalationRow, error) {
	viewer := service.Viewer{UserKey: "longessayctl", Review: true}
	rows := make([]escalationRow, 0, len(keys))
	for _, k := range keys {
		ev, err := svc.Evaluate(ctx, k, viewer)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", k, err)
		}
		if onlyAwaiting && ev.State != service.StateAwaitingStitch {
			continue
		}
		rows = append(rows, escalationRow{
			Item:           k,
			State:          string(ev.State),
			Correctors:     ev.CorrectorCount,
			Authorized:     ev.AuthorizedCount,
			Distance:       ev.Distance,
			CombinedPoints: ev.CombinedPoints,
			FinalPoints:    ev.FinalPoints,
			FinalGradeKey:  ev.FinalGradeKey,
		})
	}
	return rows, nil
}

/* =========================================================
   token
========================================================= */

func (a *app) tokenCmd() *cobra.Command {
	var (
		cl  authMiddleware.CorrectorClaims
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a corrector JWT for development",
		Long: `Sign a token accepted by the /api/corrector routes.

Example:
  longessayctl token --user u1 --task exam-2024 --corrector first
  longessayctl token --user boss --task exam-2024 --stitch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := a.v.GetString("jwt_secret")
			if secret == "" {
				secret = configs.GetEnv("JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("no signing secret (LONGESSAY_JWT_SECRET or JWT_SECRET)")
			}
			if cl.UserKey == "" {
				return fmt.Errorf("--user is required")
			}
			tok, err := authMiddleware.SignCorrectorToken(secret, cl, ttl)
			if err != nil {
				return err
			}
			if a.verbose {
				stderrf(cmd, "token for user=%s corrector=%s valid %s\n", cl.UserKey, cl.CorrectorKey, ttl)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cl.UserKey, "user", "", "user key (sub)")
	f.StringVar(&cl.TaskKey, "task", "", "task key")
	f.StringVar(&cl.CorrectorKey, "corrector", "", "corrector key")
	f.BoolVar(&cl.IsReview, "review", false, "review session")
	f.BoolVar(&cl.IsStitchDecision, "stitch", false, "stitch decision session")
	f.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

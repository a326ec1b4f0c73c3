package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"longessay_backend/internals/configs"
	"longessay_backend/internals/features/correction/repository"
	"longessay_backend/internals/features/correction/tokens"
	"longessay_backend/internals/seeds"
)

const version = "longessayctl v0.3.0"

// app carries the per-invocation configuration of one command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
}

// backend is the opened store of one command run.
type backend struct {
	Store  repository.Store
	Seeder repository.Seeder
	Tokens tokens.Store
	DB     *gorm.DB
}

func (b *backend) Close() {
	if b.DB == nil {
		return
	}
	if sqlDB, err := b.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// NewRootCmd builds the admin CLI.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "longessayctl",
		Short: "Admin tooling for the long essay correction backend",
		Long: `longessayctl prepares and inspects the correction store:
migrate the schema, import task files, purge expired tokens,
evaluate escalation and mint development tokens.

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (LONGESSAY_*)
  3. Config file (--config, default ./longessay.yaml)
  4. Backend ENV (STORE_DRIVER, JWT_SECRET, DB_*)`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./longessay.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	pf.String("driver", configs.GetEnv("STORE_DRIVER", "postgres"), "store driver (postgres|memory)")
	pf.String("dsn", "", "postgres DSN (default: built from DB_* env)")
	pf.String("seed", "", "task files loaded into the memory driver (comma separated, globs allowed)")
	for _, k := range []string{"driver", "dsn", "seed"} {
		_ = a.v.BindPFlag(k, pf.Lookup(k))
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
		a.migrateCmd(),
		a.importCmd(),
		a.purgeTokensCmd(),
		a.escalationCmd(),
		a.tokenCmd(),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) initConfig(stderr io.Writer) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("longessay")
	}

	a.v.SetEnvPrefix("LONGESSAY")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		if a.cfgFile != "" {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	} else if a.verbose {
		fmt.Fprintf(stderr, "Using config file: %s\n", a.v.ConfigFileUsed())
	}
	return nil
}

func (a *app) open(ctx context.Context) (*backend, error) {
	switch driver := strings.ToLower(a.v.GetString("driver")); driver {
	case "memory":
		mem := repository.NewMemoryStore()
		b := &backend{Store: mem, Seeder: mem, Tokens: tokens.NewMemoryStore()}
		if patterns := a.v.GetString("seed"); patterns != "" {
			files, err := seeds.ExpandSeedFiles(patterns)
			if err != nil {
				return nil, err
			}
			if err := seeds.RunAllSeeds(ctx, mem, files); err != nil {
				return nil, err
			}
		}
		return b, nil
	case "postgres", "":
		db, err := configs.InitSeederDB(a.v.GetString("dsn"))
		if err != nil {
			return nil, err
		}
		gs := repository.NewGormStore(db)
		return &backend{Store: gs, Seeder: gs, Tokens: tokens.NewGormStore(db), DB: db}, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
}

func stderrf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
}


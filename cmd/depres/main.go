package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perdasilva/depres/pkg/config"
	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/universe"
	"github.com/perdasilva/depres/pkg/universe/source"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand, filled in before any of
// them runs.
type app struct {
	configFile string
	catalogs   []string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "depres",
		Short: "Resolve package dependencies against catalogs of candidates",
		Long: `depres parses dependency strings and resolves targets into an ordered
install plan, using package catalogs (YAML, JSON or TOML) and an optional
database of installed packages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./depres.yaml or $HOME/.config/depres/depres.yaml)")
	cmd.PersistentFlags().StringSliceVar(&a.catalogs, "catalog", nil, "additional catalog file, may be repeated")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newParseCommand(a))
	cmd.AddCommand(newResolveCommand(a))
	cmd.AddCommand(newInstalledCommand(a))
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	cfg.Catalogs = append(cfg.Catalogs, a.catalogs...)
	a.cfg = cfg

	if a.verbose {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	return nil
}

func (a *app) grammar() (depspec.Grammar, error) {
	return depspec.LookupGrammar(a.cfg.Grammar)
}

// loadUniverse reads every configured catalog. With overlay set, the
// installed database marks installed candidates.
func (a *app) loadUniverse(ctx context.Context, overlay bool) (*universe.Universe, error) {
	g, err := a.grammar()
	if err != nil {
		return nil, err
	}
	sources := make([]source.Source, 0, len(a.cfg.Catalogs))
	for _, path := range a.cfg.Catalogs {
		cat, err := source.LoadFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, cat)
	}
	u, err := source.LoadUniverse(ctx, g, sources...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded catalogs", zap.Strings("catalogs", a.cfg.Catalogs), zap.Int("candidates", u.Len()))

	if overlay && a.cfg.InstalledDB != "" {
		db, err := source.OpenInstalledDB(a.cfg.InstalledDB)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if err := db.Overlay(ctx, u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// provider stacks masking and caching over the loaded universe.
func (a *app) provider(ctx context.Context) (universe.Provider, error) {
	u, err := a.loadUniverse(ctx, true)
	if err != nil {
		return nil, err
	}
	var p universe.Provider = u
	if len(a.cfg.Masks) > 0 {
		masked, err := universe.NewMaskingProvider(u, a.cfg.Masks...)
		if err != nil {
			return nil, err
		}
		p = masked
	}
	return universe.NewCachingProvider(p), nil
}

func (a *app) installedDB() (*source.InstalledDB, error) {
	if a.cfg.InstalledDB == "" {
		return nil, fmt.Errorf("no installed_db configured")
	}
	return source.OpenInstalledDB(a.cfg.InstalledDB)
}

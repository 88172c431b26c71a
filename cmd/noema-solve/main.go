package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/cognicore/noema/pkg/noema"
	"github.com/cognicore/noema/pkg/noema/config"
	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/observe"
	"github.com/cognicore/noema/pkg/noema/solution"
	"github.com/cognicore/noema/pkg/noema/store"
	"github.com/cognicore/noema/pkg/noema/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the run configuration YAML (required)")
		dbPath     = flag.String("db", "", "sqlite database path; empty runs in memory")
		maxRounds  = flag.Int("max-rounds", 0, "override the sweep round budget")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: noema-solve -config run.yaml [-db facts.db] [-max-rounds n] [-v]")
		os.Exit(2)
	}

	if err := run(context.Background(), log, *configPath, *dbPath, *maxRounds); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, log *logrus.Logger, configPath, dbPath string, maxRounds int) error {
	loader := config.Loader{Path: configPath}
	if dbPath != "" {
		s, err := sqlite.OpenSQLite(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		loader.Store = s
	}

	components, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	if maxRounds > 0 {
		components.MaxRounds = maxRounds
	}

	solver := noema.FromComponents(components, observe.NewLogger(log))
	defer solver.Close()

	result, err := solver.Solve(ctx, noema.Request{
		Target: components.Target,
		Rules:  components.RuleSet,
	})
	if err != nil {
		if errors.Is(err, internalerr.ErrBudgetExceeded) {
			log.WithField("outcome", result.Outcome).Warn("round budget exhausted before convergence")
		} else {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"target":  components.Target,
		"outcome": result.Outcome.String(),
	}).Info("run finished")

	reportOutput(ctx, log, components.Store, result.Output)
	reportSolutions(log, result.Solutions)
	return nil
}

func reportOutput(ctx context.Context, log *logrus.Logger, s store.Store, out *store.Output) {
	if out == nil || len(out.Facts) == 0 {
		log.Info("no facts generated")
		return
	}
	for _, f := range out.Facts {
		log.WithFields(logrus.Fields{
			"subject":   elementName(ctx, s, f.Subject),
			"predicate": elementName(ctx, s, f.Predicate),
			"object":    elementName(ctx, s, f.Object),
		}).Info("generated fact")
	}
}

func reportSolutions(log *logrus.Logger, nodes []solution.Node) {
	for i, node := range nodes {
		log.WithFields(logrus.Fields{
			"step":        i + 1,
			"id":          node.ID,
			"formula":     node.Formula,
			"assignments": len(node.Assignments),
		}).Info("solution node")
	}
}

func elementName(ctx context.Context, s store.Store, id store.ElementID) string {
	name, err := s.SystemIdentifier(ctx, id)
	if err != nil {
		return fmt.Sprintf("#%d", id)
	}
	return name
}

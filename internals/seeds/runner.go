package seeds

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"longessay_backend/internals/features/correction/repository"
	correction "longessay_backend/internals/seeds/correction"
)

// ExpandSeedFiles turns a comma separated SEED_FILE value (paths or globs)
// into a sorted list of files.
func ExpandSeedFiles(patterns string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(patterns, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		matches, err := filepath.Glob(part)
		if err != nil {
			return nil, fmt.Errorf("seed pattern %q: %w", part, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("seed pattern %q matches no file", part)
		}
		out = append(out, matches...)
	}
	return out, nil
}

func RunAllSeeds(ctx context.Context, seeder repository.Seeder, files []string) error {
	//* Tasks
	for _, f := range files {
		if _, err := correction.SeedTaskFromYAML(ctx, seeder, f); err != nil {
			return err
		}
	}
	log.Printf("[SEED] %d task file(s) imported", len(files))
	return nil
}

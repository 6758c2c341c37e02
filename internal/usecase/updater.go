// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/naka-gawa/codestats-box/internal/gateway"
)

// Request describes one stats card update.
type Request struct {
	Username string
	Mode     domain.Mode
	// GistID empty means dry run.
	GistID string
	// Filename pins the gist file to replace; empty uses the first file.
	Filename string
	// Force writes even when the gist already shows the same card.
	Force bool
}

// Result is what a run produced.
type Result struct {
	Snapshot *domain.StatsSnapshot
	Title    string
	Lines    []string
	Content  string
	Filename string
	DryRun   bool
	Updated  bool
	Skipped  bool
}

// Updater is the use case for refreshing the stats card.
// It orchestrates fetching, formatting and writing, strictly in sequence.
type Updater struct {
	fetcher   gateway.StatsFetcher
	sink      gateway.GistSink
	formatter *Formatter
	logger    *log.Logger
}

// NewUpdater creates a new Updater instance. A nil sink makes every run a dry run.
func NewUpdater(fetcher gateway.StatsFetcher, sink gateway.GistSink, formatter *Formatter, logger *log.Logger) *Updater {
	return &Updater{
		fetcher:   fetcher,
		sink:      sink,
		formatter: formatter,
		logger:    logger,
	}
}

// Run performs the main business logic. The first failure aborts the run;
// nothing is retried.
func (u *Updater) Run(ctx context.Context, req Request) (*Result, error) {
	u.logger.Println("Usecase: Starting stats card update...")

	u.logger.Println("[1/3] Fetching stats...")
	snapshot, err := u.fetcher.FetchStats(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats for %s: %w", req.Username, err)
	}
	u.logSummary(snapshot)

	u.logger.Printf("[2/3] Formatting stats card (mode %s)...", req.Mode)
	lines, err := u.formatter.Format(snapshot, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to format stats: %w", err)
	}
	result := &Result{
		Snapshot: snapshot,
		Title:    req.Mode.Title(),
		Lines:    lines,
		Content:  strings.Join(lines, "\n"),
	}

	if u.sink == nil || req.GistID == "" {
		u.logger.Println("[3/3] No gist configured, skipping gist update.")
		result.DryRun = true
		return result, nil
	}

	u.logger.Printf("[3/3] Writing gist %s...", req.GistID)
	gist, err := u.sink.FetchGist(ctx, req.GistID)
	if err != nil {
		return nil, err
	}
	filename, newFilename, err := targetFile(gist, req.Filename, result.Title)
	if err != nil {
		return nil, err
	}
	result.Filename = filename
	if _, ok := gist.File(filename); !ok {
		u.logger.Printf("File %q not found in the first %d files of gist %s; it will be written.", filename, gateway.GistFileLimit, req.GistID)
	}
	if newFilename != "" {
		result.Filename = newFilename
	}

	if !req.Force && upToDate(gist, filename, newFilename, result.Title, result.Content) {
		u.logger.Println("Gist content is already up-to-date. Skipping update.")
		result.Skipped = true
		return result, nil
	}

	err = u.sink.UpdateGist(ctx, domain.GistUpdate{
		GistID:      req.GistID,
		Filename:    filename,
		NewFilename: newFilename,
		Description: result.Title,
		Content:     result.Content,
	})
	if err != nil {
		return nil, err
	}
	result.Updated = true

	u.logger.Println("Usecase: Stats card update complete.")
	return result, nil
}

// targetFile picks the file to replace. A pinned name is used as is; otherwise
// the gist's first file is taken and renamed to the card title.
func targetFile(gist *domain.Gist, pinned, title string) (filename, newFilename string, err error) {
	if pinned != "" {
		return pinned, "", nil
	}
	if len(gist.Files) == 0 {
		return "", "", fmt.Errorf("%w: gist %s has no files", domain.ErrSinkNotFound, gist.ID)
	}
	filename = gist.Files[0].Name
	if filename == title {
		return filename, "", nil
	}
	return filename, title, nil
}

func upToDate(gist *domain.Gist, filename, newFilename, title, content string) bool {
	if newFilename != "" || gist.Description != title {
		return false
	}
	current, ok := gist.File(filename)
	return ok && current.Content == content
}

// logSummary logs the shape of the fetched profile and flags totals that
// do not add up.
func (u *Updater) logSummary(snapshot *domain.StatsSnapshot) {
	sum, median := summarizeSkills(snapshot.Skills)
	u.logger.Printf("Fetched %d languages: %d XP total, %d XP recently, median %.0f XP per language.",
		len(snapshot.Skills), snapshot.TotalXP, snapshot.RecentTotalXP, median)
	if sum > float64(snapshot.TotalXP) {
		u.logger.Printf("Warning: language XP adds up to %.0f, more than the reported total of %d.", sum, snapshot.TotalXP)
	}
}

// summarizeSkills returns the XP sum and median over all skills.
func summarizeSkills(skills []domain.SkillStat) (sum, median float64) {
	if len(skills) == 0 {
		return 0, 0
	}
	data := make(stats.Float64Data, len(skills))
	for i, s := range skills {
		data[i] = float64(s.TotalXP)
	}
	// Both only fail on empty input.
	sum, _ = stats.Sum(data)
	median, _ = stats.Median(data)
	return sum, median
}

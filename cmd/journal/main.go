// Command journal inspects and prunes the delivery journal written by tgrelay.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"tgrelay/internal/database"
	"tgrelay/internal/models"
	"tgrelay/internal/privacy"

	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

// runCLI returns the exit code so deferred cleanup runs before the process exits
func runCLI(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("journal", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dbPath := flags.String("db", "/data/tgrelay.db", "Path to the database file")
	limit := flags.Int("limit", 20, "Number of recent decisions to list")
	pruneDays := flags.Int("prune", 0, "Delete journal rows older than this many days")
	showIDs := flags.Bool("show-ids", false, "Print destination chat ids and sender labels unmasked")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		fmt.Fprintf(stderr, "Database file not found: %s\n", *dbPath)
		return 1
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.New(*dbPath, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := report(ctx, stdout, db, *limit, *pruneDays, *showIDs); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	return 0
}

type journal interface {
	ListRecentDeliveries(ctx context.Context, limit int) ([]*models.DeliveryRecord, error)
	CountByStatus(ctx context.Context) (map[models.DeliveryStatus]int, error)
	CleanupOldRecords(ctx context.Context, retentionDays int) (int64, error)
}

func report(ctx context.Context, out io.Writer, j journal, limit, pruneDays int, showIDs bool) error {
	if pruneDays > 0 {
		removed, err := j.CleanupOldRecords(ctx, pruneDays)
		if err != nil {
			return fmt.Errorf("failed to prune journal: %w", err)
		}
		fmt.Fprintf(out, "Pruned %d rows older than %d days\n\n", removed, pruneDays)
	}

	counts, err := j.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to count decisions: %w", err)
	}
	fmt.Fprintf(out, "delivered=%d failed=%d cancelled=%d expired=%d\n\n",
		counts[models.DeliveryStatusDelivered],
		counts[models.DeliveryStatusFailed],
		counts[models.DeliveryStatusCancelled],
		counts[models.DeliveryStatusExpired])

	records, err := j.ListRecentDeliveries(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list decisions: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DECIDED\tSTATUS\tKIND\tDESTINATION\tFROM\tERROR")
	for _, rec := range records {
		dest := "-"
		if rec.DestinationID != 0 {
			dest = privacy.MaskChatID(rec.DestinationID)
			if showIDs {
				dest = fmt.Sprint(rec.DestinationID)
			}
		}
		from := privacy.MaskUsername(rec.SenderLabel)
		if showIDs {
			from = rec.SenderLabel
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.DecidedAt.Local().Format(time.DateTime),
			rec.Status, rec.PayloadKind, dest, from, rec.ErrorMessage)
	}
	return tw.Flush()
}

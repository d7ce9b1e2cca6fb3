package cmd

import (
	"fmt"
	"log"
	"time"

	requestPostgres "github.com/frahmantamala/procurement-management/internal/request/postgres"
	"github.com/spf13/cobra"
)

var archiveOlderThanDays int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive finished requests",
	Long:  `Stamp rejected and completed requests older than the cutoff as archived. Archived rows stay readable.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		cutoff := time.Now().AddDate(0, 0, -archiveOlderThanDays)
		repo := requestPostgres.NewRequestRepository(gdb)

		archived, err := repo.ArchiveTerminal(cutoff)
		if err != nil {
			log.Fatalf("failed to archive requests: %v", err)
		}

		fmt.Printf("Archived %d requests finished before %s\n", archived, cutoff.Format("2006-01-02"))
	},
}

func init() {
	archiveCmd.Flags().IntVar(&archiveOlderThanDays, "older-than-days", 90, "Archive requests finished more than this many days ago")
}

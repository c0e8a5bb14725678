package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/twscan/internal/report"
	"github.com/wonny/twscan/pkg/database"
	"github.com/wonny/twscan/pkg/redis"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "저장소 연결 테스트",
	Long: `설정된 저장소 연결을 테스트합니다.

이 명령어는:
- PostgreSQL: 연결, Ping, 마이그레이션, Connection Pool 통계
- Redis: Ping (REDIS_ENABLED=true 일 때)
- SQLite: 파일 열기 + 최근 리포트 조회 (REPORT_SQLITE_PATH 설정 시)

Example:
  go run ./cmd/scanner test-db
  go run ./cmd/scanner test-db --env production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== twscan Storage Connection Test ===")

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n\n", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// PostgreSQL
	fmt.Printf("PostgreSQL: %s\n", maskPassword(cfg.Database.URL))
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		fmt.Println("⏭  DATABASE_URL not set")
	case err != nil:
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	default:
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("❌ Migration failed: %w", err)
		}
		status, err := db.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ Health check failed: %w", err)
		}

		fmt.Println("✅ Connected, schema up to date")
		fmt.Printf("   Tables: %s\n", strings.Join(status.Tables, ", "))
		fmt.Printf("   Response Time: %v\n", status.ResponseTime)
		fmt.Println("📊 Connection Pool Statistics:")
		fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
		fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
		fmt.Printf("   Acquired Connections: %d\n", status.Stats.AcquiredConns)
		fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)
		fmt.Printf("   Acquire Count: %d\n", status.Stats.AcquireCount)
		fmt.Printf("   Acquire Duration: %v\n", status.Stats.AcquireDuration)
	}
	fmt.Println()

	// Redis
	fmt.Printf("Redis: %s:%s\n", cfg.Redis.Host, cfg.Redis.Port)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	defer rc.Close()
	if rc.Enabled() {
		fmt.Println("✅ Ping successful")
	} else {
		fmt.Println("⏭  REDIS_ENABLED=false")
	}
	fmt.Println()

	// SQLite
	if cfg.Report.SQLitePath != "" {
		fmt.Printf("SQLite: %s\n", cfg.Report.SQLitePath)
		store, err := report.OpenSQLite(cfg.Report.SQLitePath)
		if err != nil {
			return fmt.Errorf("❌ %w", err)
		}
		defer store.Close()

		latest, err := store.GetLatest(ctx)
		if err != nil {
			return fmt.Errorf("❌ %w", err)
		}
		if latest == nil {
			fmt.Println("✅ Opened (no reports yet)")
		} else {
			fmt.Printf("✅ Opened, latest run %s at %s (%d rows)\n",
				latest.RunID, latest.CreatedAt.Format(time.RFC3339), len(latest.Rows))
		}
	}

	fmt.Println("\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password of a database URL for display
func maskPassword(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

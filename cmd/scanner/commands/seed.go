package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/twscan/internal/data"
	"github.com/wonny/twscan/internal/external/constituents"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "기본 종목 리스트 / 전략 파라미터 입력",
	Long: `DB에 기본 데이터를 입력합니다 (DATABASE_URL 필요).

이 명령어는:
- 테이블 생성 (없을 경우)
- 기본 종목 5개와 기본 전략 파라미터 upsert
- --0050: 台灣50 구성종목 중 없는 종목만 추가 (CONSTITUENTS_URL 또는 내장 목록)

Example:
  go run ./cmd/scanner seed
  go run ./cmd/scanner seed --0050
  go run ./cmd/scanner seed --0050 --skip-defaults`,
	RunE: runSeed,
}

var (
	seedTaiwan50     bool
	seedSkipDefaults bool
)

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().BoolVar(&seedTaiwan50, "0050", false, "add Taiwan 50 constituents")
	seedCmd.Flags().BoolVar(&seedSkipDefaults, "skip-defaults", false, "do not write the default stocks and parameters")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.db == nil {
		return errors.New("seed needs DATABASE_URL")
	}

	if !seedSkipDefaults {
		res, err := data.SeedDefaults(ctx, a.stocks, a.params)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Seeded %d stocks, %d strategy parameters\n", res.Stocks, res.Params)
	}

	if seedTaiwan50 {
		scraper := constituents.NewScraper(a.http, a.log, a.cfg.Source.ConstituentsURL)
		added, err := data.AddConstituents(ctx, a.stocks, scraper.Fetch(ctx))
		if err != nil {
			return err
		}
		fmt.Printf("✅ Added %d Taiwan 50 constituents\n", len(added))
		for _, s := range added {
			fmt.Printf("   %s %s\n", s.Code, s.Name)
		}
	}

	return nil
}

/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"time"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/revenue"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// parseRange reads inclusive calendar days in the ledger zone. Both empty
// means the current month to date.
func parseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	now := time.Now().In(loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	end := now
	var err error
	if from != "" {
		if start, err = time.ParseInLocation(dateLayout, from, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if end, err = time.ParseInLocation(dateLayout, to, loc); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
	}
	start, end = revenue.DayRange(start, end, loc)
	return start, end, nil
}

func printSummary(s *models.RevenueSummary) {
	common.PrintHeader(fmt.Sprintf("REVENUE %s .. %s", s.From.Format(dateLayout), s.To.AddDate(0, 0, -1).Format(dateLayout)), common.DefaultWidth)

	fmt.Println("\n┌─ Totals")
	for i, c := range sortedKeys(s.Totals) {
		fmt.Printf("%s %22s\n", common.BoxPrefix(i == len(s.Totals)-1), common.FormatMoney(s.Totals[c], c))
	}

	fmt.Println("\n┌─ By fee type")
	types := make([]string, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for i, t := range types {
		byCurrency := s.ByType[models.FeeType(t)]
		for _, c := range sortedKeys(byCurrency) {
			fmt.Printf("%s %-20s %22s\n", common.BoxPrefix(i == len(types)-1), t, common.FormatMoney(byCurrency[c], c))
		}
	}

	fmt.Println("\n┌─ By day")
	for i, d := range s.ByDay {
		fmt.Printf("%s %s %22s\n", common.BoxPrefix(i == len(s.ByDay)-1), d.Day, common.FormatMoney(d.Amount, d.Currency))
	}
}

func printDetail(p *models.RevenuePage, page models.Page, loc *time.Location) {
	common.PrintHeader("REVENUE DETAIL", common.WideWidth)
	for i, row := range p.Rows {
		fmt.Printf("%s %s  %-18s %-36s %-36s %18s\n",
			common.BoxPrefix(i == len(p.Rows)-1),
			row.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			row.FeeType,
			row.TransactionId,
			row.UserId,
			common.FormatMoney(row.Amount, row.Currency))
	}
	common.PrintFooter(fmt.Sprintf("rows %d-%d of %d", page.Offset+1, page.Offset+len(p.Rows), p.Total), common.WideWidth)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fromFlag := flag.String("from", "", "First day, YYYY-MM-DD in the ledger zone (default: start of month)")
	toFlag := flag.String("to", "", "Last day, inclusive (default: today)")
	detailFlag := flag.Bool("detail", false, "List individual revenue rows instead of the summary")
	feeTypeFlag := flag.String("fee-type", "", "Filter detail by fee type")
	currencyFlag := flag.String("currency", "", "Filter detail by currency")
	userFlag := flag.String("user-id", "", "Filter detail by user id")
	limitFlag := flag.Int("limit", 50, "Detail page size")
	offsetFlag := flag.Int("offset", 0, "Detail page offset")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	from, to, err := parseRange(*fromFlag, *toFlag, services.Location)
	if err != nil {
		logger.Fatal("Invalid range", zap.Error(err))
	}

	if *detailFlag {
		page := models.Page{Limit: *limitFlag, Offset: *offsetFlag}
		result, err := services.Revenue.Detail(ctx, models.RevenueFilter{
			From:     from,
			To:       to,
			FeeType:  models.FeeType(*feeTypeFlag),
			Currency: *currencyFlag,
			UserId:   *userFlag,
		}, page)
		if err != nil {
			common.Exit("Revenue query failed", err)
		}
		printDetail(result, page, services.Location)
		return
	}

	summary, err := services.Revenue.Summary(ctx, from, to)
	if err != nil {
		common.Exit("Revenue query failed", err)
	}
	printSummary(summary)
	common.PrintSeparator("=", common.DefaultWidth)
}

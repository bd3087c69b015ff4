// Package testutil provides testing utilities for txprofile
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TransactionsHeader is the header of the transactions dataset. It carries
// columns that the default selection drops.
const TransactionsHeader = "id,date,client_id,card_id,amount,use_chip,merchant_id,merchant_city,merchant_state,zip,mcc,errors"

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteFile writes content to dir/name and returns the path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// CSV joins a header and rows into file content with a trailing newline
func CSV(header string, rows ...string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return b.String()
}

var (
	chipTypes = []string{"Swipe Transaction", "Chip Transaction", "Online Transaction"}
	states    = []string{"CA", "TX", "NY", "FL", "IL", "OH", "WA"}
	cities    = []string{"La Verne", "Houston", "Brooklyn", "Miami", "Chicago", "Akron", "Seattle"}
)

// TransactionRows generates n deterministic transaction lines. Every seventh
// row is an online purchase with an empty merchant_state and zip, and every
// eleventh row carries an error label.
func TransactionRows(n int) []string {
	start := time.Date(2010, 1, 1, 0, 1, 0, 0, time.UTC)
	rows := make([]string, n)
	for i := 0; i < n; i++ {
		state, city, zip := states[i%len(states)], cities[i%len(cities)], fmt.Sprintf("%d.0", 90000+i%500)
		chip := chipTypes[i%2]
		if i%7 == 6 {
			state, city, zip = "", "ONLINE", ""
			chip = chipTypes[2]
		}
		errs := ""
		if i%11 == 10 {
			errs = "Insufficient Balance"
		}

		amount := fmt.Sprintf("$%d.%02d", (i*37)%500, i%100)
		if i%13 == 12 {
			amount = "-" + amount
		}

		rows[i] = fmt.Sprintf("%d,%s,%d,%d,%s,%s,%d,%s,%s,%s,%d,%s",
			7475327+i,
			start.Add(time.Duration(i/3)*time.Minute).Format("2006-01-02 15:04:05"),
			1000+i%40,
			4000+i%90,
			amount,
			chip,
			50000+i%60,
			city,
			state,
			zip,
			5400+i%9,
			errs,
		)
	}
	return rows
}

// WriteTransactions writes a transactions file with n generated rows to dir
func WriteTransactions(t *testing.T, dir string, n int) string {
	t.Helper()
	return WriteFile(t, dir, "transactions_data.csv", CSV(TransactionsHeader, TransactionRows(n)...))
}

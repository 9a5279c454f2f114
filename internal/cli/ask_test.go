package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `product,category,store_location,quantity,unit_price,date
iPhone 14,Smartphones,Manhattan,2,999.00,2023-01-02
Pixel 7,Smartphones,Brooklyn,1,599.00,2023-02-10
iPad Air,Tablets,Manhattan,1,749.00,2023-03-05
iPhone 14,Smartphones,Queens,3,999.00,2023-03-18
iPad Air,Tablets,Brooklyn,2,749.00,2023-04-22
Pixel 7,Smartphones,Manhattan,1,599.00,2023-05-30
iPad Air,Tablets,Queens,2,749.00,2023-06-14
iPhone 14,Smartphones,Brooklyn,1,999.00,2023-07-01
`

// seedDB uploads the sales CSV into a fresh database file and returns
// the database path.
func seedDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "sales_data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(salesCSV), 0o644))

	dbPath := filepath.Join(dir, "test.db")
	out, err := executeCommand(t, "upload", csvPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 8 rows into sales_data (6 columns).")
	return dbPath
}

func TestAsk_OneShotJSON(t *testing.T) {
	dbPath := seedDB(t)

	out, err := executeCommand(t, "ask", "total sales by category", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "total_sales_by_field", resp["pattern"])
	assert.Equal(t, "total sales by category", resp["question"])
	assert.Contains(t, resp["query"], `SUM("quantity" * "unit_price")`)
	assert.Equal(t, []any{"category", "total_sales"}, resp["columns"])

	rows, ok := resp["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	totals := make(map[string]float64)
	for _, r := range rows {
		cells := r.([]any)
		totals[cells[0].(string)] = cells[1].(float64)
	}
	// Smartphones: 2*999 + 599 + 3*999 + 599 + 999 = 7192.
	assert.InDelta(t, 7192.0, totals["Smartphones"], 0.001)
	// Tablets: 749 + 2*749 + 2*749 = 3745.
	assert.InDelta(t, 3745.0, totals["Tablets"], 0.001)
}

func TestAsk_OneShotText(t *testing.T) {
	dbPath := seedDB(t)

	out, err := executeCommand(t, "ask", "count of store", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "store_location")
	assert.Contains(t, out, "Manhattan")
}

func TestAsk_UnmatchedQuestionPrintsHelp(t *testing.T) {
	dbPath := seedDB(t)

	out, err := executeCommand(t, "ask", "asdkjhasd qwkjeh", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Try one of the following examples")
}

func TestAsk_EmptyDatabaseFails(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	_, err := executeCommand(t, "ask", "total sales", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload a dataset first")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAsk_InteractiveSession(t *testing.T) {
	dbPath := seedDB(t)

	cmd := NewRootCommand(testConfig())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader("total sales by store location\nexit\n"))
	cmd.SetArgs([]string{"ask", "--db", dbPath})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Connected to sales_data.")
	assert.Contains(t, out, "Brooklyn")
}

func TestExplore_ShowsClassifiedFields(t *testing.T) {
	dbPath := seedDB(t)

	out, err := executeCommand(t, "explore", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "sales_data")
	assert.Contains(t, out, "quantity")
	assert.Contains(t, out, "unit_price")
	assert.Contains(t, out, "store_location")
	assert.Contains(t, out, "date")
	assert.Contains(t, out, "Sample rows")
	assert.Contains(t, out, "iPhone 14")
}

func TestUpload_NameOverride(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "q3_export.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(salesCSV), 0o644))
	dbPath := filepath.Join(dir, "test.db")

	out, err := executeCommand(t, "upload", csvPath, "--name", "sales", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "into sales ")

	out, err = executeCommand(t, "ask", "count of category", "--db", dbPath, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"simple_count"`)
}

func TestUpload_MissingFileFails(t *testing.T) {
	_, err := executeCommand(t, "upload", filepath.Join(t.TempDir(), "absent.csv"),
		"--db", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerate_SeededOutput(t *testing.T) {
	dbPath := seedDB(t)

	first, err := executeCommand(t, "generate", "--db", dbPath, "--seed", "7", "--count", "5")
	require.NoError(t, err)
	second, err := executeCommand(t, "generate", "--db", dbPath, "--seed", "7", "--count", "5")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 5, strings.Count(first, "- "))
}

package catalogparser

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/absorpgen/absorpgen-api/logging"
	"golang.org/x/text/encoding/charmap"
)

// readTextFile returns the lines of a tabular text file.
// Files exported from spreadsheet tools are sometimes Latin-1 encoded; those
// are transcoded to UTF-8 before splitting.
func readTextFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !utf8.Valid(raw) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s as ISO-8859-1: %w", path, err)
		}
		logging.Debug("Decoded table as ISO-8859-1", "path", path)
		raw = decoded
	}

	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return lines, nil
}

// headerIndex maps lowercase column names to their position
func headerIndex(fields []string) map[string]int {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[strings.ToLower(strings.TrimSpace(f))] = i
	}
	return index
}

// skipStats counts the rows dropped while parsing a table
type skipStats struct {
	emptyLines     int
	missingColumns int
	formatErrors   int
	invalidRecords int
	duplicates     int
	totalLines     int
}

func (s skipStats) any() bool {
	return s.emptyLines+s.missingColumns+s.formatErrors+s.invalidRecords+s.duplicates > 0
}

func (s skipStats) log(table string, parsed int) {
	if !s.any() {
		return
	}
	logging.Info(table+" skip statistics",
		"empty_lines", s.emptyLines,
		"missing_columns", s.missingColumns,
		"format_errors", s.formatErrors,
		"invalid_records", s.invalidRecords,
		"duplicates", s.duplicates,
		"total_lines", s.totalLines,
		"records_parsed", parsed)
}

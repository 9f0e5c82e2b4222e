package rxnormparser

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/logging"
	"github.com/giygas/rxnorm-fhir/metrics"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
	"golang.org/x/text/encoding/charmap"
)

// maxLineSize bounds a single RRF line
const maxLineSize = 1 * 1024 * 1024

// rowOutcome is what a loader did with a well formed row
type rowOutcome int

const (
	rowStored rowOutcome = iota
	rowFiltered
	rowIgnored
)

// scanOptions controls how an RRF stream is read
type scanOptions struct {
	file       string // name used in logs and metrics
	encoding   string
	minColumns int
	maxLines   int // stop after this many lines, 0 reads everything
}

// decodeLine returns the line as UTF-8 according to the configured encoding
func decodeLine(line, encoding string) string {
	switch encoding {
	case config.EncodingLatin1:
	case config.EncodingAuto:
		if utf8.ValidString(line) {
			return line
		}
	default:
		return line
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().String(line)
	if err != nil {
		return line
	}
	return decoded
}

// scanRecords splits every line of r on '|' and hands well formed rows to handle.
// Malformed lines are counted and skipped, only a read error stops the scan.
func scanRecords(r io.Reader, opts scanOptions, handle func(fields []string) rowOutcome) (entities.FileStats, error) {
	stats := entities.FileStats{File: opts.file}
	reader := bufio.NewReaderSize(r, maxLineSize)

	for {
		if opts.maxLines > 0 && stats.TotalLines >= opts.maxLines {
			break
		}

		raw, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read %s at line %d: %w", opts.file, stats.TotalLines+1, err)
		}
		stats.TotalLines++

		if isPrefix {
			if err := discardLine(reader); err != nil {
				return stats, fmt.Errorf("failed to read %s at line %d: %w", opts.file, stats.TotalLines, err)
			}
			stats.LongLines++
			continue
		}

		line := strings.TrimRight(string(raw), "\r")
		if len(line) == 0 {
			stats.EmptyLines++
			continue
		}

		fields := strings.Split(decodeLine(line, opts.encoding), "|")
		if len(fields) < opts.minColumns {
			stats.MissingColumns++
			continue
		}

		switch handle(fields) {
		case rowStored:
			stats.Stored++
		case rowFiltered:
			stats.Filtered++
		case rowIgnored:
			stats.Ignored++
		}
	}

	recordStats(stats)
	return stats, nil
}

// discardLine drops the rest of a line longer than the read buffer
func discardLine(reader *bufio.Reader) error {
	for {
		_, more, err := reader.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// recordStats logs skip statistics and updates the row counters
func recordStats(stats entities.FileStats) {
	if stats.Skipped() > 0 {
		logging.Info(stats.File+" skip statistics",
			"empty_lines", stats.EmptyLines,
			"missing_columns", stats.MissingColumns,
			"line_too_long", stats.LongLines,
			"total_lines", stats.TotalLines,
			"records_stored", stats.Stored)
	}

	logging.Info(stats.File+" loaded",
		"stored", stats.Stored,
		"filtered", stats.Filtered,
		"ignored", stats.Ignored,
		"total_lines", stats.TotalLines)

	rows := metrics.RowsTotal
	rows.WithLabelValues(stats.File, "stored").Add(float64(stats.Stored))
	rows.WithLabelValues(stats.File, "filtered").Add(float64(stats.Filtered))
	rows.WithLabelValues(stats.File, "ignored").Add(float64(stats.Ignored))
	rows.WithLabelValues(stats.File, "empty").Add(float64(stats.EmptyLines))
	rows.WithLabelValues(stats.File, "missing_columns").Add(float64(stats.MissingColumns))
	rows.WithLabelValues(stats.File, "line_too_long").Add(float64(stats.LongLines))
}

// isSuppressed reports whether a SUPPRESS flag hides the row
func isSuppressed(flag string) bool {
	return flag != "" && flag != "N"
}

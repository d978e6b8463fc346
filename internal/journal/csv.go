package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"squeezebot/internal/model"
)

var csvHeader = []string{"trade_id", "timestamp", "symbol", "side", "quantity", "price", "strategy", "pnl"}

// CSVJournal appends trades to a CSV file. The header is written once when
// the file is created; later opens append rows only.
type CSVJournal struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// OpenCSV opens or creates the journal file at path.
func OpenCSV(path string) (*CSVJournal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	j := &CSVJournal{path: path, file: file, w: csv.NewWriter(file)}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat journal %s: %w", path, err)
	}
	if info.Size() == 0 {
		if err := j.w.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write journal header: %w", err)
		}
		j.w.Flush()
		if err := j.w.Error(); err != nil {
			file.Close()
			return nil, fmt.Errorf("write journal header: %w", err)
		}
	}
	return j, nil
}

// Record appends one trade row and flushes it to disk.
func (j *CSVJournal) Record(rec TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	pnl := ""
	if rec.PnL != nil {
		pnl = strconv.FormatFloat(*rec.PnL, 'f', -1, 64)
	}
	row := []string{
		rec.ID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Symbol,
		string(rec.Side),
		strconv.FormatFloat(rec.Quantity, 'f', -1, 64),
		strconv.FormatFloat(rec.Price, 'f', -1, 64),
		rec.Strategy,
		pnl,
	}
	if err := j.w.Write(row); err != nil {
		return fmt.Errorf("write trade %s: %w", rec.ID, err)
	}
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return fmt.Errorf("flush trade %s: %w", rec.ID, err)
	}
	return nil
}

// History re-reads the file and returns records at or after since.
func (j *CSVJournal) History(since time.Time) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", j.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	var out []TradeRecord
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read journal %s: %w", j.path, err)
		}
		if first {
			first = false
			continue // header
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse journal %s: %w", j.path, err)
		}
		if rec.Timestamp.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}

func parseRow(row []string) (TradeRecord, error) {
	if len(row) != len(csvHeader) {
		return TradeRecord{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}
	ts, err := time.Parse(time.RFC3339Nano, row[1])
	if err != nil {
		return TradeRecord{}, fmt.Errorf("timestamp %q: %w", row[1], err)
	}
	qty, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("quantity %q: %w", row[4], err)
	}
	price, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("price %q: %w", row[5], err)
	}
	rec := TradeRecord{
		ID:        row[0],
		Timestamp: ts,
		Symbol:    row[2],
		Side:      model.Side(row[3]),
		Quantity:  qty,
		Price:     price,
		Strategy:  row[6],
	}
	if row[7] != "" {
		pnl, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return TradeRecord{}, fmt.Errorf("pnl %q: %w", row[7], err)
		}
		rec.PnL = &pnl
	}
	return rec, nil
}

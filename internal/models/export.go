package models

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

var csvHeader = []string{"id", "title", "description", "status", "created_at"}

func SaveJSON(path string, tasks []Task) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(f, tasks)
}

// LoadJSON reads an exported task list. A missing file yields an empty list.
func LoadJSON(path string) ([]Task, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Task{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

func WriteJSON(w io.Writer, tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tasks)
}

func ReadJSON(r io.Reader) ([]Task, error) {
	var tasks []Task
	if err := json.NewDecoder(r).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func SaveCSV(path string, tasks []Task) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteCSV(f, tasks)
}

// LoadCSV reads a CSV export. A missing file yields an empty list.
func LoadCSV(path string) ([]Task, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Task{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func WriteCSV(w io.Writer, tasks []Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		record := []string{
			t.ID,
			t.Title,
			t.DescriptionText(),
			string(t.Status),
			t.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) ([]Task, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	tasks := make([]Task, 0, len(records))
	for i, rec := range records {
		if i == 0 && rec[0] == csvHeader[0] {
			continue
		}
		status, err := ParseStatus(rec[3])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", i+1, err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, rec[4])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: created_at: %w", i+1, err)
		}
		tasks = append(tasks, Task{
			ID:          rec[0],
			Title:       rec[1],
			Description: OptionalText(rec[2]),
			Status:      status,
			CreatedAt:   createdAt,
		})
	}
	return tasks, nil
}

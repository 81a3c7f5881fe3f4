package adapter

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
	m "gooze.dev/pkg/bytemut/internal/model"
)

const reportFileName = "report.yaml"

// ReportStore persists session reports in a reports directory.
type ReportStore interface {
	SaveReport(dir m.Path, report m.SessionReport) (m.Path, error)
	LoadReport(dir m.Path) (m.SessionReport, error)
}

// LocalReportStore implements ReportStore with YAML files.
type LocalReportStore struct {
	fs afero.Fs
}

// NewReportStore constructs a LocalReportStore backed by fs.
func NewReportStore(fs afero.Fs) *LocalReportStore {
	return &LocalReportStore{fs: fs}
}

// SaveReport implements ReportStore.
func (s *LocalReportStore) SaveReport(dir m.Path, report m.SessionReport) (m.Path, error) {
	if err := s.fs.MkdirAll(string(dir), 0o750); err != nil {
		slog.Error("Failed to create reports dir", "dir", dir, "error", err)
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(string(dir), reportFileName)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		slog.Error("Failed to write report", "path", path, "error", err)
		return "", fmt.Errorf("write report: %w", err)
	}

	return m.Path(path), nil
}

// LoadReport implements ReportStore.
func (s *LocalReportStore) LoadReport(dir m.Path) (m.SessionReport, error) {
	var report m.SessionReport

	data, err := afero.ReadFile(s.fs, filepath.Join(string(dir), reportFileName))
	if err != nil {
		return report, fmt.Errorf("read report: %w", err)
	}

	if err := yaml.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("parse report: %w", err)
	}

	return report, nil
}

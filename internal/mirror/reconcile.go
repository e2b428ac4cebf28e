package mirror

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/inkwell/internal/checksum"
)

// ReconcileReport lists the repairs made by a reconcile pass.
type ReconcileReport struct {
	Rewritten []string `json:"rewritten"`
	Removed   []string `json:"removed"`
}

// Reconcile brings the body mirror in line with the catalog:
//   - missing or drifted mirror files are rewritten from bodies
//   - mirror files with no catalog document are removed
//
// bodies maps document id to markdown and is treated as the source of truth.
// A failing file does not stop the pass; all failures are returned joined.
func (m *Mirror) Reconcile(bodies map[string]string) (*ReconcileReport, error) {
	metas, err := m.fs.List(BodyDir, bodyExt)
	if err != nil {
		return nil, fmt.Errorf("mirror: reconcile list: %w", err)
	}

	disk := make(map[string]string, len(metas))
	for _, meta := range metas {
		if filepath.ToSlash(filepath.Dir(meta.Path)) != BodyDir {
			continue
		}
		id := strings.TrimSuffix(filepath.Base(meta.Path), bodyExt)
		disk[id] = meta.Checksum
	}

	report := &ReconcileReport{Rewritten: []string{}, Removed: []string{}}
	var errs []error

	for _, id := range sortedKeys(bodies) {
		md := bodies[id]
		if cs, ok := disk[id]; ok && cs == checksum.SumString(md) {
			continue
		}
		if err := m.ProjectBody(id, md); err != nil {
			m.logger.Warn("reconcile: rewrite failed", slog.String("document_id", id), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		m.logger.Debug("reconcile: rewrote", slog.String("document_id", id))
		report.Rewritten = append(report.Rewritten, id)
	}

	for _, id := range sortedKeys(disk) {
		if _, ok := bodies[id]; ok {
			continue
		}
		if err := m.RemoveBody(id); err != nil {
			m.logger.Warn("reconcile: remove orphan failed", slog.String("document_id", id), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		m.logger.Debug("reconcile: removed orphan", slog.String("document_id", id))
		report.Removed = append(report.Removed, id)
	}

	return report, errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

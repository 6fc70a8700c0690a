package minio

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Monomer library
// ─────────────────────────────────────────────────────────────────────────────

// LibraryStore keeps a YAML monomer library in the bucket. It is both a
// registry source and the publish target of the catalog.
type LibraryStore struct {
	client *MinIOClient
	object string
	logger logging.Logger
}

var _ monomer.Source = (*LibraryStore)(nil)

func NewLibraryStore(client *MinIOClient, log logging.Logger) *LibraryStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LibraryStore{client: client, object: client.config.LibraryObject, logger: log}
}

func (s *LibraryStore) Name() string {
	return "minio:" + s.client.config.Bucket + "/" + s.object
}

// Load downloads and decodes the library object.
func (s *LibraryStore) Load(ctx context.Context) ([]*monomer.Monomer, error) {
	data, err := s.client.Get(ctx, s.object)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMonomerSourceFailed, "failed to download monomer library").WithDetail(s.Name())
	}
	ms, err := monomer.DecodeLibraryBytes(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("monomer library downloaded", logging.String("object", s.object), logging.Int("count", len(ms)))
	return ms, nil
}

// PutLibrary uploads an encoded library document and returns its key.
func (s *LibraryStore) PutLibrary(ctx context.Context, data []byte) (string, error) {
	if _, err := s.client.Put(ctx, s.object, data, "application/yaml", nil); err != nil {
		return "", err
	}
	return s.object, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Report archive
// ─────────────────────────────────────────────────────────────────────────────

// ReportArchive stores analysis reports as JSON under
// <prefix><yyyy>/<mm>/<dd>/<id>.json.
type ReportArchive struct {
	client *MinIOClient
	prefix string
}

var _ notation.ReportArchive = (*ReportArchive)(nil)

func NewReportArchive(client *MinIOClient) *ReportArchive {
	prefix := client.config.ReportPrefix
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ReportArchive{client: client, prefix: prefix}
}

// ReportKey is the object key of r.
func (a *ReportArchive) ReportKey(r *notation.AnalysisReport) string {
	return path.Join(a.prefix, r.GeneratedAt.UTC().Format("2006/01/02"), r.ID+".json")
}

func (a *ReportArchive) PutReport(ctx context.Context, r *notation.AnalysisReport) (string, error) {
	if r == nil || r.ID == "" {
		return "", errors.New(errors.ErrCodeBadRequest, "report id is required")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode report")
	}
	key := a.ReportKey(r)
	meta := map[string]string{"report-id": r.ID}
	if r.Name != "" {
		meta["report-name"] = r.Name
	}
	if _, err := a.client.Put(ctx, key, data, "application/json", meta); err != nil {
		return "", err
	}
	return key, nil
}

// GetReport reads an archived report back by object key.
func (a *ReportArchive) GetReport(ctx context.Context, key string) (*notation.AnalysisReport, error) {
	data, err := a.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var r notation.AnalysisReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode report").WithDetail(key)
	}
	return &r, nil
}

// ListReports lists archived report keys under the archive prefix.
func (a *ReportArchive) ListReports(ctx context.Context) ([]string, error) {
	objs, err := a.client.List(ctx, a.prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		if strings.HasSuffix(o.ObjectKey, ".json") {
			keys = append(keys, o.ObjectKey)
		}
	}
	return keys, nil
}

package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petasbytes/paper-agent/internal/config"
	"github.com/petasbytes/paper-agent/internal/docs"
	"github.com/petasbytes/paper-agent/internal/telemetry"
	"github.com/petasbytes/paper-agent/internal/uploads"
	"github.com/petasbytes/paper-agent/tools"
)

// UploadReport lists the outcome of one upload batch.
type UploadReport struct {
	Indexed []string       `json:"indexed"`
	Failed  []FailedUpload `json:"failed,omitempty"`
}

type FailedUpload struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type buildResult struct {
	name string
	pair tools.Pair
	err  error
}

// Upload stores and indexes files, registers their tools and rebuilds the tool
// retriever once for the batch. Under the skip policy failed documents are
// listed in the report. Under the abort policy the first *docs.DocumentLoadError
// is returned and nothing from the batch is registered. When the batch is
// registered but the index rebuild fails, the report is returned together with
// an error wrapping ErrIndexStale.
func (s *Session) Upload(ctx context.Context, files []uploads.File) (UploadReport, error) {
	report := UploadReport{Indexed: []string{}}
	if s.closed {
		return report, ErrClosed
	}
	if len(files) == 0 {
		return report, nil
	}
	ctx = telemetry.WithSessionID(ctx, s.id)
	abort := s.deps.Policy == config.PolicyAbort

	results := make([]buildResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Workers)
	for i, f := range files {
		g.Go(func() error {
			res := s.buildOne(gctx, f)
			results[i] = res
			if abort && res.err != nil {
				return res.err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("upload batch aborted", zap.Error(err))
		return report, err
	}

	changed := false
	for _, res := range results {
		if res.err != nil {
			report.Failed = append(report.Failed, FailedUpload{Name: res.name, Error: res.err.Error()})
			continue
		}
		s.registry.Register(res.name, res.pair)
		report.Indexed = append(report.Indexed, res.name)
		changed = true
	}
	if changed {
		if err := s.rebuildRetriever(ctx); err != nil {
			return report, err
		}
	}
	s.log.Info("upload batch done",
		zap.Int("indexed", len(report.Indexed)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("documents", s.registry.Len()),
	)
	return report, nil
}

func (s *Session) buildOne(ctx context.Context, f uploads.File) buildResult {
	name := uploads.Stem(f.Name)
	start := time.Now()

	res := buildResult{name: name}
	path, err := s.deps.Store.Save(f)
	if err != nil {
		res.err = &docs.DocumentLoadError{Path: f.Name, Name: name, Err: err}
	} else {
		res.pair, res.err = s.deps.Builder.Build(ctx, path, name)
		var dle *docs.DocumentLoadError
		if res.err != nil && !errors.As(res.err, &dle) {
			res.err = &docs.DocumentLoadError{Path: path, Name: name, Err: res.err}
		}
	}

	s.deps.Metrics.DocumentIndexed(res.err)
	fields := []zap.Field{
		zap.String("document", name),
		zap.Int("bytes", len(f.Data)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Bool("ok", res.err == nil),
	}
	if res.err != nil {
		fields = append(fields, zap.String("error", res.err.Error()))
		s.log.Warn("document failed", zap.String("document", name), zap.Error(res.err))
	}
	s.deps.Recorder.Emit(ctx, telemetry.EventDocumentIndexed, fields...)
	return res
}

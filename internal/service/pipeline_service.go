package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"notepipe/internal/domain"
	"notepipe/internal/imaging"
	"notepipe/internal/notes"
	"notepipe/internal/port"
)

const markdownContentType = "text/markdown; charset=utf-8"

// PipelineService processes every note waiting in the source folder.
type PipelineService interface {
	// Run processes one batch. The report is always returned; the error is
	// non-nil only when listing failed or an AuthFailure aborted the batch.
	Run(ctx context.Context) (*domain.RunReport, error)
}

// PipelineConfig holds the folder layout and per-run settings.
type PipelineConfig struct {
	SourceFolder         string
	DestFolder           string
	ProcessedFolder      string
	SkipAlreadyProcessed bool
	MaxFiles             int
	StorageTimeout       time.Duration
	MaxImageDimension    int
	DryRun               bool
}

// Stages bundles the note processing components, applied in field order.
type Stages struct {
	Classifier *notes.Classifier
	Extractor  *notes.Extractor
	Refiner    *notes.Refiner
	Titler     *notes.Titler
	Assembler  *notes.Assembler
}

type pipelineService struct {
	store      port.FileStore
	rasterizer port.Rasterizer
	stages     Stages
	notifier   port.RunNotifier
	cfg        PipelineConfig
	now        func() time.Time
	logger     *zap.Logger
}

// NewPipelineService creates a PipelineService. notifier may be nil.
func NewPipelineService(
	store port.FileStore,
	rasterizer port.Rasterizer,
	stages Stages,
	notifier port.RunNotifier,
	cfg PipelineConfig,
	now func() time.Time,
	logger *zap.Logger,
) PipelineService {
	if now == nil {
		now = time.Now
	}
	return &pipelineService{
		store:      store,
		rasterizer: rasterizer,
		stages:     stages,
		notifier:   notifier,
		cfg:        cfg,
		now:        now,
		logger:     logger,
	}
}

func (s *pipelineService) Run(ctx context.Context) (*domain.RunReport, error) {
	report := domain.NewRunReport(s.now())
	report.DryRun = s.cfg.DryRun
	log := s.logger.With(zap.String("run_id", report.RunID.String()))
	log.Info("run started",
		zap.String("source", s.cfg.SourceFolder),
		zap.Bool("dry_run", s.cfg.DryRun))

	runErr := s.runBatch(ctx, report, log)

	report.FinishedAt = s.now()
	if runErr != nil {
		log.Error("run aborted", zap.String("reason", report.AbortReason), zap.Error(runErr))
	}
	log.Info(report.Summary(), zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	s.notify(ctx, report, log)
	return report, runErr
}

func (s *pipelineService) runBatch(ctx context.Context, report *domain.RunReport, log *zap.Logger) error {
	listCtx, cancel := s.storageContext(ctx)
	listed, err := s.store.List(listCtx, s.cfg.SourceFolder)
	cancel()
	if err != nil {
		report.Aborted = true
		report.AbortReason = "listing failed"
		if errors.Is(err, domain.ErrAuth) {
			report.AbortReason = string(domain.KindAuthFailure)
		}
		return fmt.Errorf("listing %s: %w", s.cfg.SourceFolder, err)
	}

	files := make([]domain.SourceFile, 0, len(listed))
	for _, f := range listed {
		if !f.IsFolder {
			files = append(files, f)
		}
	}
	if s.cfg.MaxFiles > 0 && len(files) > s.cfg.MaxFiles {
		log.Info("limiting batch", zap.Int("found", len(files)), zap.Int("max_files", s.cfg.MaxFiles))
		files = files[:s.cfg.MaxFiles]
	}
	log.Info("files discovered", zap.Int("count", len(files)))

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			s.abort(report, files[i:], "canceled")
			return err
		}

		res := s.processFile(ctx, f, log.With(zap.String("file", f.Name)))
		report.Results = append(report.Results, *res)

		if res.Kind == domain.KindAuthFailure {
			s.abort(report, files[i+1:], string(domain.KindAuthFailure))
			return fmt.Errorf("batch aborted at %s: %w", f.Name, res.Err)
		}
	}
	return nil
}

func (s *pipelineService) abort(report *domain.RunReport, rest []domain.SourceFile, reason string) {
	report.Aborted = true
	report.AbortReason = reason
	for _, f := range rest {
		report.NotAttempted = append(report.NotAttempted, f.Name)
	}
}

// processFile drives one file through the state machine and returns its final result.
func (s *pipelineService) processFile(ctx context.Context, f domain.SourceFile, log *zap.Logger) *domain.FileResult {
	res := domain.NewFileResult(f)
	ext := extensionOf(f)

	if !domain.IsAllowedExtension(ext) {
		_ = res.Skip(fmt.Sprintf("unsupported extension %q", ext))
		log.Info("file skipped", zap.String("reason", res.Message))
		return res
	}
	if err := res.Advance(domain.FileStateValidated); err != nil {
		s.fail(res, err, log)
		return res
	}

	if s.cfg.SkipAlreadyProcessed {
		done, err := s.alreadyProcessed(ctx, f)
		switch {
		case err != nil && errors.Is(err, domain.ErrAuth):
			s.fail(res, domain.NewStageError(domain.KindAuthFailure, err), log)
			return res
		case err != nil:
			log.Warn("already-processed check failed, processing anyway", zap.Error(err))
		case done:
			_ = res.Skip("already processed")
			log.Info("file skipped", zap.String("reason", res.Message))
			return res
		}
	}

	if err := s.process(ctx, f, ext, res, log); err != nil {
		s.fail(res, err, log)
		return res
	}
	log.Info("file processed",
		zap.String("state", string(res.State)),
		zap.String("note_type", string(res.NoteType)),
		zap.String("document", res.DocumentName))
	return res
}

func (s *pipelineService) process(ctx context.Context, f domain.SourceFile, ext string, res *domain.FileResult, log *zap.Logger) error {
	data, err := s.download(ctx, f.ID)
	if err != nil {
		return domain.NewStageError(domain.KindDownloadFailure, err)
	}

	published, vision, err := s.prepareImage(ctx, f, ext, data)
	if err != nil {
		return domain.NewStageError(domain.KindConversionFailure, err)
	}

	noteType, err := s.stages.Classifier.Classify(ctx, vision)
	if err != nil {
		return err
	}
	res.NoteType = noteType
	if err := s.advance(res, domain.FileStateClassified, log); err != nil {
		return err
	}

	raw, err := s.stages.Extractor.Extract(ctx, vision, noteType)
	if err != nil {
		return err
	}
	if err := s.advance(res, domain.FileStateExtracted, log); err != nil {
		return err
	}

	body, err := s.stages.Refiner.Refine(ctx, raw, noteType)
	if err != nil {
		return err
	}
	doc := domain.RefinedDocument{
		Body:       body,
		Sections:   notes.ParseSections(body),
		SourceDate: s.sourceDate(f),
	}
	if err := s.advance(res, domain.FileStateRefined, log); err != nil {
		return err
	}

	doc.Title, err = s.stages.Titler.Title(ctx, doc.Body)
	if err != nil {
		return err
	}
	if err := s.advance(res, domain.FileStateTitled, log); err != nil {
		return err
	}

	baseName, err := s.artifactBaseName(ctx, f, doc, log)
	if err != nil {
		return domain.NewStageError(domain.KindPersistFailure, err)
	}

	artifact := s.stages.Assembler.Assemble(notes.AssembleInput{
		Title:      doc.Title,
		Body:       doc.Body,
		NoteType:   noteType,
		SourceDate: doc.SourceDate,
		SourceName: f.Name,
		Image:      published,
		Folder:     s.cfg.DestFolder,
		BaseName:   baseName,
	})
	res.DocumentName = artifact.DocumentName
	res.ImageName = artifact.ImageName
	if err := s.advance(res, domain.FileStateAssembled, log); err != nil {
		return err
	}
	log.Debug("document assembled",
		zap.String("title", doc.Title),
		zap.Int("sections", len(doc.Sections)),
		zap.Int("bytes", len(artifact.Markdown)))

	if s.cfg.DryRun {
		log.Info("dry run, not persisting",
			zap.String("document", artifact.DocumentName),
			zap.String("image", artifact.ImageName))
		return nil
	}

	if err := s.persist(ctx, artifact); err != nil {
		return domain.NewStageError(domain.KindPersistFailure, err)
	}
	if err := s.advance(res, domain.FileStatePersisted, log); err != nil {
		return err
	}

	if err := s.relocate(ctx, f); err != nil {
		return domain.NewStageError(domain.KindRelocationFailure, err)
	}
	return s.advance(res, domain.FileStateRelocated, log)
}

// prepareImage returns the image published next to the document and the one
// sent to the vision model. PDFs publish their first page; other formats keep
// their original bytes.
func (s *pipelineService) prepareImage(ctx context.Context, f domain.SourceFile, ext string, data []byte) (published, vision domain.Image, err error) {
	if ext == "pdf" {
		published, err = s.rasterizer.FirstPageImage(ctx, data)
		if err != nil {
			return domain.Image{}, domain.Image{}, fmt.Errorf("rasterizing %s: %w", f.Name, err)
		}
	} else {
		published = imaging.FromBytes(data, ext)
	}

	vision, err = imaging.ForVision(published, s.cfg.MaxImageDimension)
	if err != nil {
		return domain.Image{}, domain.Image{}, err
	}
	return published, vision, nil
}

func (s *pipelineService) persist(ctx context.Context, artifact domain.OutputArtifact) error {
	uploadCtx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.store.Upload(uploadCtx, artifact.Folder, artifact.DocumentName, markdownContentType, artifact.Markdown); err != nil {
		return fmt.Errorf("uploading document: %w", err)
	}

	imageCtx, cancelImage := s.storageContext(ctx)
	defer cancelImage()
	if err := s.store.Upload(imageCtx, artifact.Folder, artifact.ImageName, artifact.Image.MediaType, artifact.Image.Data); err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}
	return nil
}

// artifactBaseName keeps the date and title name unless a document from another
// source already holds it, in which case the name gets a suffix derived from
// the source id. Reruns of the same source resolve to the same name.
func (s *pipelineService) artifactBaseName(ctx context.Context, f domain.SourceFile, doc domain.RefinedDocument, log *zap.Logger) (string, error) {
	base := notes.BaseName(doc.SourceDate, doc.Title)

	readCtx, cancel := s.storageContext(ctx)
	defer cancel()
	existing, err := s.store.Read(readCtx, s.cfg.DestFolder, base+".md")
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return base, nil
	case err != nil:
		return "", fmt.Errorf("checking destination name %s: %w", base, err)
	case notes.IsDocumentFor(existing, f.Name):
		return base, nil
	}

	unique := notes.UniqueBaseName(doc.SourceDate, doc.Title, f.ID)
	log.Info("destination name taken by another source",
		zap.String("name", base),
		zap.String("using", unique))
	return unique, nil
}

func (s *pipelineService) relocate(ctx context.Context, f domain.SourceFile) error {
	moveCtx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.store.Move(moveCtx, f.ID, s.cfg.ProcessedFolder); err != nil {
		return fmt.Errorf("moving to %s: %w", s.cfg.ProcessedFolder, err)
	}
	return nil
}

func (s *pipelineService) download(ctx context.Context, id string) ([]byte, error) {
	dlCtx, cancel := s.storageContext(ctx)
	defer cancel()
	return s.store.Download(dlCtx, id)
}

func (s *pipelineService) alreadyProcessed(ctx context.Context, f domain.SourceFile) (bool, error) {
	existsCtx, cancel := s.storageContext(ctx)
	defer cancel()
	return s.store.Exists(existsCtx, s.cfg.ProcessedFolder, f.Name)
}

func (s *pipelineService) advance(res *domain.FileResult, next domain.FileState, log *zap.Logger) error {
	if err := res.Advance(next); err != nil {
		return err
	}
	log.Debug("state changed", zap.String("state", string(next)))
	return nil
}

func (s *pipelineService) fail(res *domain.FileResult, err error, log *zap.Logger) {
	from := res.State
	if ferr := res.Fail(err); ferr != nil {
		log.Error("cannot record failure", zap.Error(ferr), zap.NamedError("cause", err))
		return
	}
	log.Warn("file failed",
		zap.String("after", string(from)),
		zap.String("kind", string(res.Kind)),
		zap.Error(err))
}

func (s *pipelineService) notify(ctx context.Context, report *domain.RunReport, log *zap.Logger) {
	if s.notifier == nil {
		return
	}
	notifyCtx, cancel := s.storageContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.notifier.NotifyRun(notifyCtx, report); err != nil {
		log.Warn("run notification failed", zap.Error(err))
	}
}

func (s *pipelineService) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StorageTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.StorageTimeout)
	}
	return context.WithCancel(ctx)
}

// sourceDate is the capture date of f, falling back to the current time.
func (s *pipelineService) sourceDate(f domain.SourceFile) time.Time {
	if !f.CreatedAt.IsZero() {
		return f.CreatedAt
	}
	return s.now()
}

func extensionOf(f domain.SourceFile) string {
	ext := f.Extension
	if ext == "" {
		ext = path.Ext(f.Name)
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

package printing

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docforge/backend/internal/domain/printing"
	"github.com/docforge/backend/internal/domain/shared"
	"github.com/docforge/backend/internal/infrastructure/telemetry"
)

// =============================================================================
// Asset Operations
// =============================================================================

// UploadAsset stores the file and records it against a template.
// If the record cannot be saved the stored file is removed again.
func (s *GenerationService) UploadAsset(ctx context.Context, req UploadAssetRequest) (*AssetResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "UploadAsset",
		telemetry.WithAttribute(telemetry.SpanAttrTemplateID, req.TemplateID.String()))
	defer span.End()

	resp, err := s.uploadAsset(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrStoragePath, resp.StoragePath)
	telemetry.SetOK(span)
	return resp, nil
}

func (s *GenerationService) uploadAsset(ctx context.Context, req UploadAssetRequest) (*AssetResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	role := printing.AssetRole(req.Role)
	if err := printing.ValidateAssetRole(role); err != nil {
		return nil, err
	}
	if _, err := printing.ValidateAssetExtension(req.Filename); err != nil {
		return nil, err
	}
	if _, err := s.findTemplate(ctx, req.TemplateID); err != nil {
		return nil, err
	}

	stored, err := s.files.SaveAsset(ctx, role, req.Filename, req.Data)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = req.Filename
	}
	asset, err := printing.NewAsset(req.TemplateID, role, name, *stored)
	if err != nil {
		s.discardFile(ctx, stored.Path)
		return nil, err
	}
	asset.WithDisplay(req.DisplayConfig, req.IsDefault)

	if err := s.assets.Save(ctx, asset); err != nil {
		s.discardFile(ctx, stored.Path)
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}

	s.logger.Info("asset uploaded",
		zap.String("id", asset.ID.String()),
		zap.String("template_id", asset.TemplateID.String()),
		zap.String("role", string(asset.Role)),
		zap.String("path", asset.StoragePath),
		zap.Int64("size", asset.FileSize))
	return s.toAssetResponse(asset), nil
}

// ListAssets returns a template's assets in upload order
func (s *GenerationService) ListAssets(ctx context.Context, templateID uuid.UUID) ([]AssetResponse, error) {
	assets, err := s.assets.FindByTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	items := make([]AssetResponse, len(assets))
	for i := range assets {
		items[i] = *s.toAssetResponse(&assets[i])
	}
	return items, nil
}

// DeleteAsset removes the record and its file together
func (s *GenerationService) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	err := s.assets.DeleteWithFile(ctx, id, func(path string) error {
		return s.files.Delete(ctx, path)
	})
	if err != nil {
		return err
	}
	s.logger.Info("asset deleted", zap.String("id", id.String()))
	return nil
}

// ResizeAsset stores a scaled copy of a raster asset as a new asset of the same
// template and role. The original is kept.
func (s *GenerationService) ResizeAsset(ctx context.Context, req ResizeAssetRequest) (*AssetResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.MaxWidth == 0 && req.MaxHeight == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "max_width or max_height is required")
	}
	source, err := s.assets.FindByID(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}

	stored, err := s.files.ResizeAsset(ctx, source.StoragePath, req.MaxWidth, req.MaxHeight, req.Quality)
	if err != nil {
		return nil, err
	}
	resized, err := printing.NewAsset(source.TemplateID, source.Role, source.Name, *stored)
	if err != nil {
		s.discardFile(ctx, stored.Path)
		return nil, err
	}
	resized.WithDisplay(source.DisplayConfig, false)

	if err := s.assets.Save(ctx, resized); err != nil {
		s.discardFile(ctx, stored.Path)
		return nil, fmt.Errorf("failed to save asset: %w", err)
	}

	s.logger.Info("asset resized",
		zap.String("source", source.ID.String()),
		zap.String("id", resized.ID.String()),
		zap.String("path", resized.StoragePath))
	return s.toAssetResponse(resized), nil
}

// ReconcileAssets compares asset records with the files under assets/.
// Files without a record are orphans and are removed when removeOrphans is set;
// records whose file is gone are reported as dangling and left for the caller.
func (s *GenerationService) ReconcileAssets(ctx context.Context, removeOrphans bool) (*ReconcileResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "ReconcileAssets")
	defer span.End()

	recorded, err := s.assets.AllStoragePaths(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load asset paths: %w", err)
	}
	files, err := s.files.ListAssetFiles(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := &ReconcileResponse{OrphanFiles: []string{}, DanglingAssets: []string{}}
	onDisk := make(map[string]bool, len(files))
	for _, f := range files {
		onDisk[f] = true
		if _, ok := recorded[f]; ok {
			continue
		}
		resp.OrphanFiles = append(resp.OrphanFiles, f)
		if !removeOrphans {
			continue
		}
		if err := s.files.Delete(ctx, f); err != nil {
			s.logger.Warn("failed to remove orphan asset file", zap.String("path", f), zap.Error(err))
			continue
		}
		resp.RemovedFiles++
	}
	for path, id := range recorded {
		if !onDisk[path] {
			resp.DanglingAssets = append(resp.DanglingAssets, id.String())
		}
	}
	slices.Sort(resp.DanglingAssets)

	telemetry.SetAttributes(span, telemetry.SpanAttrAssetCount, len(recorded))
	telemetry.SetOK(span)
	s.logger.Info("asset reconciliation completed",
		zap.Int("records", len(recorded)),
		zap.Int("files", len(files)),
		zap.Int("orphans", len(resp.OrphanFiles)),
		zap.Int("dangling", len(resp.DanglingAssets)),
		zap.Int("removed", resp.RemovedFiles))
	return resp, nil
}

// discardFile undoes a store whose record could not be written
func (s *GenerationService) discardFile(ctx context.Context, path string) {
	if err := s.files.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.logger.Warn("failed to discard stored file, reconcile will report it",
			zap.String("path", path), zap.Error(err))
	}
}

func (s *GenerationService) toAssetResponse(a *printing.Asset) *AssetResponse {
	return &AssetResponse{
		ID:            a.ID.String(),
		TemplateID:    a.TemplateID.String(),
		Role:          string(a.Role),
		Name:          a.Name,
		StoragePath:   a.StoragePath,
		URL:           s.files.URL(a.StoragePath),
		FileSize:      a.FileSize,
		MimeType:      a.MimeType,
		Width:         a.Width,
		Height:        a.Height,
		DisplayConfig: a.DisplayConfig,
		IsDefault:     a.IsDefault,
		CreatedAt:     a.CreatedAt,
	}
}

// Package ocr defines the extraction provider port and its adapters: the
// docscan HTTP provider, the deterministic static provider, and the fallback
// decorator that chains them.
package ocr

import (
	"context"

	"veridoc/internal/platform/config"
	"veridoc/internal/verification/models"
	dErrors "veridoc/pkg/domain-errors"
)

//go:generate mockgen -source=provider.go -destination=mocks/provider_mock.go -package=mocks

// Provider extracts document fields from an uploaded artifact. Extract always
// returns a result object; transport and provider failures are reported via
// Succeeded=false and ErrorMessages, never as a Go error. Callers branch on
// the result, not on err.
type Provider interface {
	// ID names the provider for provenance records.
	ID() string
	Extract(ctx context.Context, artifact models.UploadedArtifact) *models.ExtractionResult
}

// New builds the provider stack described by cfg: the named primary provider
// wrapped in a fallback decorator when a distinct fallback is configured.
func New(cfg config.OCRConfig, opts ...Option) (Provider, error) {
	primary, err := build(cfg.Provider, cfg, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.FallbackProvider == "" || cfg.FallbackProvider == cfg.Provider {
		return primary, nil
	}

	secondary, err := build(cfg.FallbackProvider, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewFallback(primary, secondary, opts...)
}

func build(name string, cfg config.OCRConfig, opts ...Option) (Provider, error) {
	switch name {
	case ProviderDocscan:
		return NewDocscan(cfg.DocscanEndpoint, cfg.DocscanAPIKey, cfg.Timeout, opts...)
	case ProviderStatic:
		return NewStatic(opts...), nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown ocr provider %q", name)
	}
}

// Provider names accepted in configuration.
const (
	ProviderDocscan = "docscan"
	ProviderStatic  = "static"
)

package items

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nasif-azam/fabricctl/internal/fabricapi"
	"github.com/nasif-azam/fabricctl/internal/observability"
)

const payloadTypeInlineBase64 = "InlineBase64"

// Materializer creates discovered artifacts in a target workspace. Its
// outcomes are ledger values, never errors: a failed item must not stop the
// items that follow it.
type Materializer struct {
	api fabricapi.API
	log zerolog.Logger
}

func NewMaterializer(api fabricapi.API, logger zerolog.Logger) *Materializer {
	return &Materializer{api: api, log: logger}
}

// Deploy resolves the artifact's definition file, encodes it as a single
// inline part, and issues the create call. A missing definition file is a
// soft skip. No retry on failure; throttling is the caller's inter-item delay.
func (m *Materializer) Deploy(ctx context.Context, artifact Artifact, workspaceID string) DeploymentResult {
	result := DeploymentResult{Artifact: artifact}

	if artifact.Type == TypeUnknown {
		result.Status = StatusSkipped
		result.Reason = "unknown item type"
		return m.record(result)
	}

	definitionPath, ok := ResolveDefinition(artifact)
	if !ok {
		result.Status = StatusSkipped
		result.Reason = "definition not found"
		m.log.Warn().Str("name", artifact.DisplayName).Msg("definition file not found, skipping")
		return m.record(result)
	}

	content, err := os.ReadFile(definitionPath)
	if err != nil {
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("read definition: %v", err)
		return m.record(result)
	}

	req := fabricapi.ItemRequest{
		DisplayName: artifact.DisplayName,
		Type:        string(artifact.Type),
		Definition: &fabricapi.Definition{
			Parts: []fabricapi.DefinitionPart{{
				Path:        filepath.Base(definitionPath),
				Payload:     base64.StdEncoding.EncodeToString(content),
				PayloadType: payloadTypeInlineBase64,
			}},
		},
	}

	if err := m.api.CreateItem(ctx, workspaceID, req); err != nil {
		result.Status = StatusFailed
		result.Reason = deployFailureReason(err)
		m.log.Error().
			Str("name", artifact.DisplayName).
			Str("type", string(artifact.Type)).
			Str("reason", result.Reason).
			Msg("item deploy failed")
		return m.record(result)
	}

	result.Status = StatusDeployed
	m.log.Info().
		Str("name", artifact.DisplayName).
		Str("type", string(artifact.Type)).
		Msg("item deployed")
	return m.record(result)
}

func (m *Materializer) record(result DeploymentResult) DeploymentResult {
	observability.RecordItemOutcome(string(result.Artifact.Type), string(result.Status))
	return result
}

// ResolveDefinition locates the canonical definition file for an artifact,
// applying the notebook .ipynb fallback.
func ResolveDefinition(artifact Artifact) (string, bool) {
	name, ok := definitionFiles[artifact.Type]
	if !ok {
		return "", false
	}
	path := filepath.Join(artifact.Path, name)
	if fileExists(path) {
		return path, true
	}
	if artifact.Type == TypeNotebook {
		fallback := filepath.Join(artifact.Path, artifact.DisplayName+".ipynb")
		if fileExists(fallback) {
			return fallback, true
		}
	}
	return "", false
}

func deployFailureReason(err error) string {
	switch {
	case errors.Is(err, fabricapi.ErrUnauthorized):
		return fmt.Sprintf("unauthorized, missing item-creation permission: %v", err)
	case errors.Is(err, fabricapi.ErrForbidden):
		return fmt.Sprintf("forbidden, missing item-creation permission: %v", err)
	default:
		return err.Error()
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

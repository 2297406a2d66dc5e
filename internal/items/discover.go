package items

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var ErrDiscovery = errors.New("items: discovery failed")

// ItemsDir is the designated subfolder whose immediate children are item
// folders named <displayName>.<TypeMarker>.
const ItemsDir = "Development"

// Discover scans the designated subfolder of root and classifies each child
// directory by its type marker. Order follows directory-listing order, which
// is deterministic within one run. Non-directories are ignored; directories
// without a recognized marker come back as TypeUnknown so the caller can
// report them as skipped. Zero typed artifacts is a discovery failure.
func Discover(root string, logger zerolog.Logger) ([]Artifact, error) {
	dir := filepath.Join(root, ItemsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDiscovery, dir, err)
	}

	var artifacts []Artifact
	typed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := entry.Name()
		artifact := Classify(folder)
		artifact.Path = filepath.Join(dir, folder)

		if artifact.Type == TypeUnknown {
			logger.Warn().Str("folder", folder).Msg("unknown item type")
		} else {
			typed++
			logger.Info().
				Str("name", artifact.DisplayName).
				Str("type", string(artifact.Type)).
				Msg("found item")
		}
		artifacts = append(artifacts, artifact)
	}

	if typed == 0 {
		return nil, fmt.Errorf("%w: no deployable items under %s", ErrDiscovery, dir)
	}
	logger.Info().Int("count", typed).Msg("discovery complete")
	return artifacts, nil
}

// Classify resolves a folder name against the ordered marker table. The
// display name is the folder name with the matched marker removed.
func Classify(folder string) Artifact {
	for _, tm := range typeMarkers {
		if strings.Contains(folder, tm.Marker) {
			return Artifact{
				DisplayName: strings.Replace(folder, tm.Marker, "", 1),
				Type:        tm.Type,
				FolderName:  folder,
			}
		}
	}
	return Artifact{DisplayName: folder, Type: TypeUnknown, FolderName: folder}
}

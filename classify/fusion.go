package classify

import (
	"github.com/cherryamme/jasper/catalog"
	"github.com/cherryamme/jasper/matcher"
)

// detectFusion reports whether any fusion-catalog pattern matches anywhere
// inside trimmed, at or below fusionErrRate. This is a veto over an
// otherwise-valid read, never a promotion: callers only invoke it once a
// read has already cleared every layer and has a well-defined trim window.
func detectFusion(trimmed []byte, fusionCatalog *catalog.FusionCatalog, fusionErrRate float64) bool {
	for _, pattern := range fusionCatalog.Patterns {
		if matcher.Best(trimmed, pattern, fusionErrRate).Found {
			return true
		}
	}
	return false
}

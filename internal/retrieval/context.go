package retrieval

import (
	"fmt"
	"path"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// blockSeparator joins accepted context blocks.
const blockSeparator = "\n\n"

// AssembleContext packs chunks in ranked order into a context string of at
// most maxChars runes, separators included. A block that would overflow the
// budget is truncated to exactly fill it; nothing is added after that.
func AssembleContext(chunks []*models.ScoredChunk, maxChars int) string {
	var blocks []string
	used := 0
	for _, c := range chunks {
		if used >= maxChars {
			break
		}
		src := strings.TrimSuffix(c.Record.Path, path.Ext(c.Record.Path))
		block := fmt.Sprintf("[Source: %s]\n%s\n", src, c.Record.Text)
		sep := 0
		if len(blocks) > 0 {
			sep = len(blockSeparator)
		}
		remaining := maxChars - used - sep
		if remaining <= 0 {
			break
		}
		if n := utils.RuneLen(block); n > remaining {
			blocks = append(blocks, utils.TruncateRunes(block, remaining))
			used += sep + remaining
			break
		} else {
			blocks = append(blocks, block)
			used += sep + n
		}
	}
	return strings.Join(blocks, blockSeparator)
}

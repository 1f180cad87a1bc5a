package extract

import (
	"bytes"

	"github.com/adrg/frontmatter"
)

// Frontmatter returns the YAML frontmatter of a markdown document. A document
// without frontmatter, or with an empty block, yields nil and no error.
func Frontmatter(content []byte) (map[string]any, error) {
	var matter map[string]any
	if _, err := frontmatter.Parse(bytes.NewReader(content), &matter); err != nil {
		return nil, err
	}
	if len(matter) == 0 {
		return nil, nil
	}
	return matter, nil
}

package decompose

import (
	"fmt"
	"regexp"
	"strings"
)

// Plain treats a field as a single plain-text block.
type Plain struct{}

// Name implements PageBuilder.
func (Plain) Name() string { return "plain" }

// SplitBlocks implements PageBuilder.
func (Plain) SplitBlocks(raw string) []Block {
	return []Block{{Text: raw, HTML: false}}
}

// Reassemble implements PageBuilder.
func (Plain) Reassemble(raw string, replacements map[int]string) (string, error) {
	if text, ok := replacements[0]; ok {
		return text, nil
	}
	return raw, nil
}

// blockTagPattern matches the block-level HTML elements whose inner text
// is simplifiable. Non-greedy so sibling elements split cleanly.
var blockTagPattern = regexp.MustCompile(`(?s)<(p|h[1-6]|li|blockquote|figcaption|td|th)(\s[^>]*)?>(.*?)</([a-z0-9]+)>`)

// BlockTags splits HTML content into one block per block-level element
// (paragraphs, headings, list items, table cells). Markup between and
// around the elements is left untouched on reassembly. Content without
// any block element is treated as a single HTML block.
type BlockTags struct{}

// Name implements PageBuilder.
func (BlockTags) Name() string { return "blocktags" }

// SplitBlocks implements PageBuilder.
func (BlockTags) SplitBlocks(raw string) []Block {
	matches := blockTagPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return []Block{{Text: raw, HTML: true}}
	}
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, Block{Text: raw[m[6]:m[7]], HTML: true})
	}
	return blocks
}

// Reassemble implements PageBuilder.
func (BlockTags) Reassemble(raw string, replacements map[int]string) (string, error) {
	matches := blockTagPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		if text, ok := replacements[0]; ok {
			return text, nil
		}
		return raw, nil
	}

	for index := range replacements {
		if index < 0 || index >= len(matches) {
			return "", fmt.Errorf("block index %d out of range (%d blocks)", index, len(matches))
		}
	}

	var sb strings.Builder
	last := 0
	for i, m := range matches {
		innerStart, innerEnd := m[6], m[7]
		sb.WriteString(raw[last:innerStart])
		if text, ok := replacements[i]; ok {
			sb.WriteString(text)
		} else {
			sb.WriteString(raw[innerStart:innerEnd])
		}
		last = innerEnd
	}
	sb.WriteString(raw[last:])
	return sb.String(), nil
}

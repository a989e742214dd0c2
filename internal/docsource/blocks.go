package docsource

import (
	"bufio"
	"strings"
)

// Block is one layout unit of a non-PDF document: a heading or a
// paragraph, in document order.
type Block struct {
	Level int // heading level 1-6, 0 for body text
	Text  string
}

// textBlocks splits plain text into paragraph blocks on blank lines.
func textBlocks(src string) ([]Block, error) {
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blocks []Block
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			blocks = append(blocks, Block{Text: current.String()})
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

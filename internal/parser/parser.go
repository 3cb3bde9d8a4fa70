package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/recall/internal/deck"
)

const (
	frontPrefix    = "Q:"
	backPrefix     = "A:"
	categoryPrefix = "C:"
	headingPrefix  = "# "
	separator      = "---"
	fence          = "```"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingCategory
)

// ParseFile reads a file from the given path and extracts all item drafts.
func ParseFile(path string) ([]deck.Draft, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads Q:/A:/C: blocks from r. A "# Heading" line sets the category
// of the following cards that carry no C: block of their own. Inside a card
// a "# " line is a heading only after a blank line and outside a code fence;
// otherwise it is card content.
func Parse(r io.Reader) ([]deck.Draft, error) {
	scanner := bufio.NewScanner(r)
	var drafts []deck.Draft
	var current deck.Draft
	var block []string
	var heading string
	var inFence, prevBlank bool
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(block, "\n"), "\n")
		switch currentState {
		case readingFront:
			current.Front = content
		case readingBack:
			current.Back = content
		case readingCategory:
			current.Category = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Front != "" {
			if current.Category == "" {
				current.Category = heading
			}
			drafts = append(drafts, current)
		}
		current = deck.Draft{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()
		isHeading := strings.HasPrefix(line, headingPrefix) && !inFence &&
			(currentState == seeking || prevBlank)
		prevBlank = strings.TrimSpace(line) == ""

		switch {
		case inFence:
			if strings.HasPrefix(strings.TrimSpace(line), fence) {
				inFence = false
			}
			block = append(block, line)
		case line == separator:
			finishCard()
		case isHeading:
			finishCard()
			heading = strings.TrimSpace(line[len(headingPrefix):])
		case strings.HasPrefix(line, frontPrefix):
			if currentState != seeking { // a new question always starts a new card
				finishCard()
			}
			currentState = readingFront
			block = append(block, trimMarker(line, frontPrefix))
		case strings.HasPrefix(line, backPrefix):
			flushBlock()
			currentState = readingBack
			block = append(block, trimMarker(line, backPrefix))
		case strings.HasPrefix(line, categoryPrefix):
			flushBlock()
			currentState = readingCategory
			block = append(block, trimMarker(line, categoryPrefix))
		case currentState != seeking:
			if strings.HasPrefix(strings.TrimSpace(line), fence) {
				inFence = true
			}
			block = append(block, line)
		}
	}

	finishCard() // the last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return drafts, nil
}

func trimMarker(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}

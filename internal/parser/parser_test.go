package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
		expectedCat   string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedFront: "What is the capital of France?",
			expectedBack:  "Paris",
		},
		{
			name:          "Simple Q, A, and C",
			input:         "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			expectedCards: 1,
			expectedFront: "What is 1+1?",
			expectedBack:  "2",
			expectedCat:   "Basic arithmetic",
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedFront: "What are the primary colors?",
			expectedBack:  "Red\nBlue\nYellow",
		},
		{
			name: "Two Cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "Separator ends a card",
			input: `Q: One
A: 1
---
Q: Two
A: 2`,
			expectedCards: 2,
		},
		{
			name: "Heading sets category",
			input: `# Chemistry
Q: Symbol for gold?
A: Au
`,
			expectedCards: 1,
			expectedFront: "Symbol for gold?",
			expectedBack:  "Au",
			expectedCat:   "Chemistry",
		},
		{
			name: "Explicit category beats heading",
			input: `# Chemistry
Q: Symbol for gold?
A: Au
C: Elements
`,
			expectedCards: 1,
			expectedFront: "Symbol for gold?",
			expectedBack:  "Au",
			expectedCat:   "Elements",
		},
		{
			name: "Hash line inside answer",
			input: `Q: How do you comment in Python?
A: Start the line with a hash:
# like this
and carry on.
`,
			expectedCards: 1,
			expectedFront: "How do you comment in Python?",
			expectedBack:  "Start the line with a hash:\n# like this\nand carry on.",
		},
		{
			name:          "Hash line inside code fence",
			input:         "Q: Shell comment?\nA: Use a hash.\n```sh\n\n# list files\nls\n```\n",
			expectedCards: 1,
			expectedFront: "Shell comment?",
			expectedBack:  "Use a hash.\n```sh\n\n# list files\nls\n```",
		},
		{
			name: "Heading after blank line starts new section",
			input: `# Chemistry
Q: Symbol for gold?
A: Au

# Physics
`,
			expectedCards: 1,
			expectedFront: "Symbol for gold?",
			expectedBack:  "Au",
			expectedCat:   "Chemistry",
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedFront: "Question",
			expectedBack:  "Answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			drafts, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(drafts) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(drafts))
			}

			if tc.expectedCards == 1 {
				d := drafts[0]
				if d.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, d.Front)
				}
				if d.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, d.Back)
				}
				if d.Category != tc.expectedCat {
					t.Errorf("Expected Category to be '%s', but got '%s'", tc.expectedCat, d.Category)
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.md")
	if err := os.WriteFile(path, []byte("# Go\nQ: Zero value of int?\nA: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	drafts, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Category != "Go" {
		t.Errorf("Unexpected drafts: %+v", drafts)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

package services

import (
	"regexp"
	"strings"
)

// Numbering prefixes that begin a new question: "1.", "2)", "Q3:",
// "Question 4", "[5]", "6a)". Matching is case-insensitive because OCR
// output is inconsistent about casing.
var numberingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(\d+[\.\)]\s+)`),
	regexp.MustCompile(`(?i)^(Q\s*\d+[\.\:\s]+)`),
	regexp.MustCompile(`(?i)^(Question\s*\d+[\.\:\s]*)`),
	regexp.MustCompile(`(?i)^(\[\d+\])`),
	regexp.MustCompile(`(?i)^(\d+\s*[a-z][\.\)]\s*)`),
}

// Interrogative and imperative openers treated as question starts even
// without a numbering prefix.
var questionWords = regexp.MustCompile(`(?i)^(what|how|why|when|where|who|which|explain|describe|define|list|write|discuss|state|give|find|calculate|solve|prove|draw|compare|differentiate|evaluate|analyze)`)

// Annotations stripped from extracted questions: mark allocations and
// course-outcome / Bloom-level tags common on Indian university papers.
var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	parenMarks    = regexp.MustCompile(`(?i)\(\d+\s*marks?\)`)
	bracketMarks  = regexp.MustCompile(`(?i)\[\d+\s*marks?\]`)
	courseOutcome = regexp.MustCompile(`(?i)\(?\s*CO\s*\d+\s*\)?`)
	bloomLevel    = regexp.MustCompile(`(?i)\(?\s*BL\s*\d+\s*\)?`)
)

// Question end markers. A line containing one of these closes the question
// being accumulated.
var endMarkers = []string{"?", "marks)", "Marks)", "marks]", "Marks]"}

// ExtractQuestions pulls individual exam questions out of raw OCR text.
//
// The scan is line oriented: a numbering prefix or an interrogative opener
// starts a new question, following lines are appended as continuations until
// the accumulated text reaches 500 characters, and an end marker closes the
// question early. Accumulated fragments of 20 characters or fewer are noise
// (page headers, stray numbers) and are dropped at every flush point.
// Cleaned questions outside (20, 1000) characters are discarded, and
// duplicates are removed keeping first occurrence order.
func ExtractQuestions(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}

	var questions []string
	currentQuestion := ""

	for _, line := range lines {
		startsWithNumber := false
		for _, pattern := range numberingPatterns {
			if pattern.MatchString(line) {
				startsWithNumber = true
				break
			}
		}
		startsWithQuestionWord := questionWords.MatchString(line)

		if startsWithNumber || startsWithQuestionWord {
			if len(currentQuestion) > 20 {
				questions = append(questions, strings.TrimSpace(currentQuestion))
			}

			currentQuestion = line
			for _, pattern := range numberingPatterns {
				currentQuestion = pattern.ReplaceAllString(currentQuestion, "")
			}
			currentQuestion = strings.TrimSpace(currentQuestion)
		} else if currentQuestion != "" && len(line) > 0 && len(currentQuestion) < 500 {
			currentQuestion += " " + line
		}

		for _, marker := range endMarkers {
			if strings.Contains(line, marker) && len(currentQuestion) > 20 {
				questions = append(questions, strings.TrimSpace(currentQuestion))
				currentQuestion = ""
				break
			}
		}
	}

	if len(currentQuestion) > 20 {
		questions = append(questions, strings.TrimSpace(currentQuestion))
	}

	var cleaned []string
	for _, q := range questions {
		q = whitespaceRun.ReplaceAllString(q, " ")
		q = parenMarks.ReplaceAllString(q, "")
		q = bracketMarks.ReplaceAllString(q, "")
		q = courseOutcome.ReplaceAllString(q, "")
		q = bloomLevel.ReplaceAllString(q, "")
		q = strings.TrimSpace(q)

		if len(q) > 20 && len(q) < 1000 {
			cleaned = append(cleaned, q)
		}
	}

	seen := make(map[string]bool, len(cleaned))
	unique := make([]string, 0, len(cleaned))
	for _, q := range cleaned {
		if !seen[q] {
			seen[q] = true
			unique = append(unique, q)
		}
	}

	return unique
}

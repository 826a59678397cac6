package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractQuestionsNumberedPaper(t *testing.T) {
	text := `UNIVERSITY EXAMINATION 2024
Answer all questions.

1. Explain the working of a binary search tree with an example?
2. Describe the process of normalization in relational databases. (5 marks)
3. What are the advantages of using linked lists over arrays?
`

	questions := ExtractQuestions(text)
	require.Len(t, questions, 3)
	assert.Equal(t, "Explain the working of a binary search tree with an example?", questions[0])
	assert.Equal(t, "Describe the process of normalization in relational databases.", questions[1])
	assert.Equal(t, "What are the advantages of using linked lists over arrays?", questions[2])
}

func TestExtractQuestionsPrefixVariants(t *testing.T) {
	text := `Q1. Explain the concept of virtual memory in operating systems?
Question 2: Describe the TCP three-way handshake procedure in detail?
[3] Compare paging and segmentation as memory management schemes?
`

	questions := ExtractQuestions(text)
	require.Len(t, questions, 3)
	assert.Equal(t, "Explain the concept of virtual memory in operating systems?", questions[0])
	assert.Equal(t, "Describe the TCP three-way handshake procedure in detail?", questions[1])
	assert.Equal(t, "Compare paging and segmentation as memory management schemes?", questions[2])
}

func TestExtractQuestionsMultilineContinuation(t *testing.T) {
	text := `1. Explain how the two-phase commit protocol
coordinates distributed transactions
across multiple database nodes?
`

	questions := ExtractQuestions(text)
	require.Len(t, questions, 1)
	assert.Equal(t, "Explain how the two-phase commit protocol coordinates distributed transactions across multiple database nodes?", questions[0])
}

func TestExtractQuestionsStripsAnnotations(t *testing.T) {
	text := `1. Describe the OSI reference model and its layers. (10 marks) CO 2 BL 3
2. Explain the difference between processes and threads. [5 marks]
`

	questions := ExtractQuestions(text)
	require.Len(t, questions, 2)
	assert.Equal(t, "Describe the OSI reference model and its layers.", questions[0])
	assert.Equal(t, "Explain the difference between processes and threads.", questions[1])
	for _, q := range questions {
		assert.NotContains(t, q, "marks")
		assert.NotContains(t, q, "CO")
		assert.NotContains(t, q, "BL")
	}
}

func TestExtractQuestionsDeduplicatesPreservingOrder(t *testing.T) {
	text := `1. Explain the working principle of a hash table in detail?
2. Describe the quicksort algorithm and its complexity?
3. Explain the working principle of a hash table in detail?
`

	questions := ExtractQuestions(text)
	require.Len(t, questions, 2)
	assert.Equal(t, "Explain the working principle of a hash table in detail?", questions[0])
	assert.Equal(t, "Describe the quicksort algorithm and its complexity?", questions[1])
}

func TestExtractQuestionsDropsShortFragments(t *testing.T) {
	text := `1. What is DNS?
2. Explain the domain name resolution process step by step?
`

	// "What is DNS?" cleans to 12 chars, below the noise floor.
	questions := ExtractQuestions(text)
	require.Len(t, questions, 1)
	assert.Equal(t, "Explain the domain name resolution process step by step?", questions[0])
}

func TestExtractQuestionsDropsOverlongBlocks(t *testing.T) {
	long := "1. Explain " + strings.Repeat("the theory of computation and automata ", 30) + "?"
	questions := ExtractQuestions(long)
	assert.Empty(t, questions)
}

func TestExtractQuestionsEmptyInput(t *testing.T) {
	assert.Empty(t, ExtractQuestions(""))
	assert.Empty(t, ExtractQuestions("Page 1 of 4\nRoll No:\nTime: 3 hours"))
}

func TestExtractQuestionsCarriageReturns(t *testing.T) {
	text := "1. Explain the structure of an inverted index in search engines?\r\n2. Describe how PageRank scores web pages?\r"

	questions := ExtractQuestions(text)
	require.Len(t, questions, 2)
	assert.Equal(t, "Explain the structure of an inverted index in search engines?", questions[0])
	assert.Equal(t, "Describe how PageRank scores web pages?", questions[1])
}

func TestExtractQuestionsIdempotentOnOwnOutput(t *testing.T) {
	text := `1. What are the main differences between TCP and UDP transport protocols?
2. Describe the process of leader election in the Raft consensus algorithm
3. Explain the role of the ARP protocol in address resolution?
`

	first := ExtractQuestions(text)
	require.Len(t, first, 3)

	// cleaned output re-parses to itself, with no residual markers
	again := ExtractQuestions(strings.Join(first, "\n"))
	assert.Equal(t, first, again)
}

func TestExtractQuestionsDeterministic(t *testing.T) {
	text := `1. Explain the working of the Dijkstra shortest path algorithm?
2. Describe the Bellman-Ford algorithm and when it is preferred?
3. Compare Prim and Kruskal minimum spanning tree algorithms?
`

	first := ExtractQuestions(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ExtractQuestions(text))
	}
}

package tasks

import (
	"strings"
	"testing"
)

const articlePage = `
<!DOCTYPE html>
<html>
<head>
	<title>Morning Shots</title>
</head>
<body>
	<header>
		<h1>Site Header</h1>
		<nav>Navigation</nav>
	</header>
	<main>
		<article>
			<h1>The Week Ahead</h1>
			<p>This is the main content of the newsletter. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
			<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
			<p>Here is some more substantial content to ensure we meet the character threshold. <a href="/p/related">A related post</a> adds more context for readers.</p>
		</article>
	</main>
	<aside>
		<div>Advertisement</div>
	</aside>
	<footer>
		<p>Copyright 2024</p>
	</footer>
</body>
</html>
`

func TestContentExtractor_Run_ValidHTML(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run([]byte(articlePage), "https://thebulwark.com/p/week-ahead")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "main content of the newsletter") {
		t.Errorf("Expected extracted content to contain main article text")
	}

	if strings.Contains(result, "Advertisement") {
		t.Errorf("Expected extracted content to exclude advertisement")
	}

	if !strings.Contains(result, "https://thebulwark.com/p/related") {
		t.Errorf("Expected relative links to be resolved against the page URL")
	}
}

func TestContentExtractor_Run_WithoutPageURL(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run([]byte(articlePage), "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result == "" {
		t.Errorf("Expected non-empty result")
	}
}

func TestContentExtractor_Run_EmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run(nil, "")
	if err == nil {
		t.Fatal("Expected error for empty data")
	}
	if result != "" {
		t.Errorf("Expected empty result for empty data")
	}

	expectedError := "HTML data is empty"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}
}

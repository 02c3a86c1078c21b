package ai

import (
	"fmt"
	"strings"
)

// themeDescriptions translate document themes into prompt guidance.
var themeDescriptions = map[string]string{
	"journal":     "a two-column academic journal article with abstract, sections, and references",
	"problem_set": "a problem set with numbered exercises and space for solutions",
	"thesis":      "a thesis with title page, chapters, and a bibliography",
	"report":      "a technical report with title page, table of contents, and numbered sections",
	"letter":      "a formal letter using the letter document class",
}

func themeDescription(theme, customTheme string) string {
	if theme == "custom" && strings.TrimSpace(customTheme) != "" {
		return customTheme
	}
	if desc, ok := themeDescriptions[theme]; ok {
		return desc
	}
	return "a clean general-purpose article"
}

func autocompletePrompt(contextText, fileName string) string {
	var b strings.Builder
	b.WriteString("You are a LaTeX autocomplete engine.")
	if fileName != "" {
		fmt.Fprintf(&b, " The user is editing %s.", fileName)
	}
	b.WriteString(" Continue the text below with a short completion of at most one sentence or one LaTeX construct. Return only the completion, no explanation and no markdown.\n\n")
	b.WriteString(contextText)
	return b.String()
}

func chatPrompt(contextText, message string) string {
	var b strings.Builder
	b.WriteString("You are an assistant embedded in a LaTeX editor. Answer the user's question. When the answer involves LaTeX, include working snippets.\n")
	if contextText != "" {
		b.WriteString("\nCurrent document (may be truncated):\n")
		b.WriteString(contextText)
		b.WriteString("\n")
	}
	b.WriteString("\nUser: ")
	b.WriteString(message)
	return b.String()
}

func generatePrompt(content, theme string) string {
	var b strings.Builder
	b.WriteString("Convert the following content into a complete, compilable LaTeX document styled as ")
	b.WriteString(theme)
	b.WriteString(". Include the preamble and \\begin{document}...\\end{document}. Return only LaTeX source, no markdown fences.\n\nContent:\n")
	b.WriteString(content)
	return b.String()
}

func improvePrompt(content string) string {
	var b strings.Builder
	b.WriteString("Improve the following LaTeX content: fix structure, tighten wording, and correct LaTeX usage. Preserve the author's meaning and all semantic commands. Return only the improved LaTeX source, no commentary.\n\n")
	b.WriteString(content)
	return b.String()
}

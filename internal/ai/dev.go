package ai

import "texforge/backend/internal/agent"

// Dev-mode responses, returned when no API key is configured so the
// frontend can be developed without spending tokens.

func devAutocomplete() string {
	return "\\section{Introduction}"
}

func devChat() string {
	return "Dev mode: no API key is configured. Add a Gemini API key in settings to enable AI responses."
}

func devGenerate() string {
	return `\documentclass{article}
\title{Sample Document}
\author{Dev Mode}
\begin{document}
\maketitle
\section{Introduction}
This placeholder document is returned because no API key is configured.
\end{document}
`
}

func devImprove() string {
	return "% Dev mode: no API key configured; content returned unchanged.\n"
}

func devAgentEdit() agent.Result {
	return agent.Result{
		Explanation: "Dev mode: no API key is configured, so no edits were generated.",
		Changes:     []agent.Change{},
	}
}

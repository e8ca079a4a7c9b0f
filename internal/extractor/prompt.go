package extractor

import "fmt"

// analysisPrompt is sent verbatim with the transcript appended. The model must
// answer with a single JSON object shaped like types.AnalysisResult.
const analysisPrompt = `You are analyzing a YouTube video transcript. Your task is to:
1. Provide a concise summary of the content (max 3 paragraphs)
2. Identify the main points/key takeaways (max 5)
3. List any factual statements with source links when possible
4. If it's educational content, what are the most important learnings?
5. Organize your response as a single JSON object in the following format:
{
  "summary": "...",
  "keyPoints": ["...", "..."],
  "facts": [
    {"statement": "...", "source": "..."},
    {"statement": "...", "source": "..."}
  ],
  "educationalContent": "..."
}

DO NOT include timestamps in your analysis. Focus only on content and meaning.
If you're unsure about sources for facts, provide your best guess for reliable sources.
Return only the JSON object.

Here is the transcript:
%s
`

// BuildPrompt embeds transcript into the fixed analysis instructions.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(analysisPrompt, transcript)
}

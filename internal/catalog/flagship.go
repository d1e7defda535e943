package catalog

// flagshipModels is the curated reference list of top-tier releases, one
// entry per notable provider release. Matching against it is a loose
// bidirectional substring check, see IsFlagship.
var flagshipModels = []string{
	"openai/gpt-4o",
	"openai/gpt-4.1",
	"openai/o1",
	"openai/o3",
	"anthropic/claude-3.5-sonnet",
	"anthropic/claude-3.7-sonnet",
	"anthropic/claude-sonnet-4",
	"anthropic/claude-opus-4",
	"google/gemini-2.5-pro",
	"google/gemini-pro-1.5",
	"meta-llama/llama-3.1-405b-instruct",
	"mistralai/mistral-large",
	"x-ai/grok-3",
	"deepseek/deepseek-r1",
	"qwen/qwen-2.5-72b-instruct",
}

// FlagshipModels returns a copy of the reference list
func FlagshipModels() []string {
	out := make([]string, len(flagshipModels))
	copy(out, flagshipModels)
	return out
}

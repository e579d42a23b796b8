package feedback

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies what a prompt asks for; generators pick their model and limits from it.
type Kind string

const (
	KindSubmission Kind = "submission"
	KindSummary    Kind = "summary"
	KindEvaluation Kind = "evaluation"
)

const (
	submissionMaxTokens = 1500
	summaryMaxTokens    = 1000
	evaluationMaxTokens = 1500

	NoSubmissionsText = "No submissions to evaluate"
)

// Prompt is a chat-completion request: a system persona and a user message.
type Prompt struct {
	Kind      Kind
	System    string
	User      string
	MaxTokens int
}

const submissionSystemPrompt = `You are an expert educational assessment AI. Your task is to evaluate a student's submission against a provided mark scheme and generate detailed, constructive feedback.

The feedback should:
1. Begin with a brief, personalized introduction addressing the student by name
2. Include a structured checklist of criteria from the mark scheme and how well the student met each one
3. Highlight specific strengths with concrete examples from their submission
4. Identify areas for improvement with actionable suggestions
5. End with an encouraging summary that motivates further learning

IMPORTANT FORMATTING REQUIREMENTS:
- Use proper Markdown formatting throughout your response
- Use ## for section headings
- Use **bold** for important terms, criteria names, and scores
- Use bullet points (- ) for lists
- Use > blockquotes for direct quotes from the student's work
- Include emojis where appropriate to make the feedback engaging (✅, ⭐, 📝, etc.)
- Format any scoring as **Score: X/Y points**
- Create visually distinct sections with horizontal rules (---)

Be specific, objective, and supportive in your assessment. Use clear language that helps the student understand both what they did well and how they can improve.`

const summarySystemPrompt = "You are a helpful academic assistant. Summarize the following content in clear bullet points, highlighting the key aspects and requirements."

const evaluationSystemPrompt = "You are a helpful academic evaluator. Compare the submitted work against the task description and provide a detailed analysis."

// SubmissionInput is what a submission feedback prompt is built from.
type SubmissionInput struct {
	AssignmentTitle       string
	AssignmentDescription string
	MarkScheme            string
	StudentName           string
	Content               string
}

// SubmissionPrompt builds the prompt evaluating one submission against the mark scheme.
func SubmissionPrompt(in SubmissionInput) Prompt {
	user := fmt.Sprintf(`# Assignment
Title: %s
Description: %s

# Mark Scheme
%s

# Student Submission
Student: %s
Content: %s

Please evaluate this submission against the mark scheme and provide detailed, structured feedback with proper Markdown formatting.`,
		in.AssignmentTitle, in.AssignmentDescription, in.MarkScheme, in.StudentName, in.Content)

	return Prompt{
		Kind:      KindSubmission,
		System:    submissionSystemPrompt,
		User:      user,
		MaxTokens: submissionMaxTokens,
	}
}

func SummaryPrompt(content string) Prompt {
	return Prompt{
		Kind:      KindSummary,
		System:    summarySystemPrompt,
		User:      content,
		MaxTokens: summaryMaxTokens,
	}
}

func EvaluationPrompt(descriptor, work string) Prompt {
	return Prompt{
		Kind:      KindEvaluation,
		System:    evaluationSystemPrompt,
		User:      fmt.Sprintf("Task Description:\n%s\n\nSubmitted Work:\n%s", descriptor, work),
		MaxTokens: evaluationMaxTokens,
	}
}

// Result is the generated feedback of one student's submission.
type Result struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Feedback string `json:"feedback"`
}

// Report is the outcome of a batch feedback generation.
type Report struct {
	Evaluation string   `json:"evaluation"`
	Results    []Result `json:"results"`
}

// SummaryReport renders the Markdown summary of a batch feedback generation.
func SummaryReport(assignmentTitle string, results []Result, generatedAt time.Time) string {
	if len(results) == 0 {
		return NoSubmissionsText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# AI Feedback for Assignment: %s\n\n", assignmentTitle)
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- %d submissions evaluated\n", len(results))
	fmt.Fprintf(&b, "- Generated on: %s\n\n", generatedAt.UTC().Format("2006-01-02 15:04 MST"))
	b.WriteString("## Individual Results\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: Feedback generated\n", r.Username)
	}
	b.WriteString("\nOpen each submission to see its detailed feedback.")
	return b.String()
}

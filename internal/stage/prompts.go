package stage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joescharf/codereview/internal/batch"
	"github.com/joescharf/codereview/internal/llm"
	"github.com/joescharf/codereview/internal/models"
)

var (
	detectOptions   = llm.Options{Temperature: 0.3, MaxOutputTokens: 2048}
	conceptOptions  = llm.Options{Temperature: 0.3, MaxOutputTokens: 2048}
	hintOptions     = llm.Options{Temperature: 0.4, MaxOutputTokens: 512}
	qualityOptions  = llm.Options{Temperature: 0.3, MaxOutputTokens: 2048}
	advancedOptions = llm.Options{Temperature: 0.5, MaxOutputTokens: 1024}
	validateOptions = llm.Options{Temperature: 0.2, MaxOutputTokens: 2048}
)

const detectSystem = `You are a CS1-level programming tutor. Your job is to analyze student code and failing test cases, and identify the specific code snippets causing each failure. You must respond in valid JSON only.`

// buildDetectPrompt asks for one logic issue per failing test case.
func buildDetectPrompt(code string, failing []models.TestOutcome) string {
	var b strings.Builder
	b.WriteString("Student code:\n")
	b.WriteString(code)
	b.WriteString("\n\nFailing test cases:\n")
	for _, tc := range failing {
		fmt.Fprintf(&b, "ID: %d | Input: %s | Expected: %s | Actual: %s\n", tc.ID, tc.Input, tc.Expected, tc.Actual)
	}
	b.WriteString(`
Instructions:
1) For each failing test case, produce a JSON object containing:
- "issue": a short explanation of why the test failed
- "evidence": the ID of the failing test case (an integer from the list above)
- "code_snippet": the part of the student's code that likely caused this failure
- "location": line/column start and end of the code snippet if known (otherwise null)
2) Respond only in JSON format, matching this schema:
{
  "logic_issues": [
    {
      "issue": "short explanation",
      "evidence": 0,
      "code_snippet": "relevant code snippet",
      "location": {"start_line": 1, "end_line": 1, "start_col": 1, "end_col": 10}
    }
  ]
}
Make your explanations concise and beginner-friendly.`)
	return b.String()
}

const conceptSystem = `You are a concept-mapping agent for CS1 (intro to programming). You relate each logic issue in a student's code to the programming concepts the student needs to revisit. Respond in valid JSON only.`

// buildConceptPrompt asks for a concept mapping of every issue in the batch.
func buildConceptPrompt(assignment models.AssignmentContext, issues []batch.Entry[int, models.LogicIssue]) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assignment requirements: %s\n", assignment.Requirements)
	fmt.Fprintf(&b, "Expected concepts: %s\n\n", strings.Join(assignment.ExpectedConcepts, ", "))
	b.WriteString("Logic issues in this batch:\n")
	for _, e := range issues {
		fmt.Fprintf(&b, "Issue %d | Summary: %s | Evidence (test case ID): %d | Code snippet: %s", e.Key, e.Value.Issue, e.Value.Evidence, e.Value.CodeSnippet)
		if loc := e.Value.Location; loc != nil {
			fmt.Fprintf(&b, " (lines %d-%d)", loc.StartLine, loc.EndLine)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Task:
1. If the issue relates to an expected concept, add it to "relevant_concepts".
2. If the issue relates to other valid CS1 concepts, add it to "other_concepts".
3. Set "issue_ref" to the issue number shown above.
4. Provide a short explanation citing the evidence (test case ID and/or code snippet).

Output JSON format:
{
  "concept_issues": [
    {
      "issue_ref": 0,
      "relevant_concepts": ["concept"],
      "other_concepts": ["concept"],
      "explanation": "short explanation"
    }
  ]
}
Notes:
- Do NOT invent new failing cases.
- Keep JSON valid.`)
	return b.String()
}

const hintSystem = `You are a supportive CS1 teaching assistant. You give students a hint that guides them toward fixing a bug without handing them the full solution. Respond in valid JSON only.`

// buildHintPrompt asks for a fix hint for a single issue.
func buildHintPrompt(requirements string, issue models.LogicIssue) string {
	if requirements == "" {
		requirements = "No assignment description provided."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ASSIGNMENT DESCRIPTION:\n%s\n\n", requirements)
	fmt.Fprintf(&b, "CODE SNIPPET (from student's submission):\n%s\n\n", issue.CodeSnippet)
	fmt.Fprintf(&b, "PROBLEM SUMMARY:\n%s\n\n", issue.Issue)
	fmt.Fprintf(&b, "RELATED CS1 CONCEPTS (relevant only):\n%s\n\n", strings.Join(issue.RelevantConcepts, ", "))
	fmt.Fprintf(&b, "EVIDENCE: Test case ID %d\n\n", issue.Evidence)
	b.WriteString(`TASK:
Based on the above information, generate a JSON object with a clear fix hint
that explains what might be wrong conceptually and what steps the student
should take to fix it.

Output must be valid JSON:
{"fix_suggestion": "hint text"}`)
	return b.String()
}

const qualitySystem = `You are a CS1-level programming style and quality tutor. Your job is to analyze student code and provide feedback on code style, readability, and structure, but not logic or syntax errors. All responses must be in valid JSON format.`

// buildQualityPrompt asks for style and quality notes on the whole submission.
func buildQualityPrompt(code string) string {
	var b strings.Builder
	b.WriteString("Analyze the student's code below and identify style and quality issues that might affect readability, maintainability, or performance, but do NOT affect correctness.\n\nCODE:\n")
	b.WriteString(code)
	b.WriteString(`

Return valid JSON with this structure:
{
  "needs_improvement": true,
  "improvement_notes": [
    {
      "location": {"start_line": 1, "end_line": 1, "start_col": 1, "end_col": 10},
      "code_snippet": "exact code lines related to the issue",
      "fix_suggestion": "specific and actionable improvement suggestion",
      "issue": "explain why this part needs improvement in simple terms"
    }
  ]
}
Guidelines:
- Explain each issue in a way that a CS1 student can understand.
- Focus on naming, commenting, modularity, duplication, and structure.
- Avoid logic or syntax explanations.
- Keep the tone supportive and educational.`)
	return b.String()
}

const advancedSystem = `You are a CS1 instructor. The student's code already works and is well written. Suggest a few next topics that would stretch the student a little further. Respond in valid JSON only.`

// buildAdvancedPrompt asks for follow-up topics for a correct submission.
func buildAdvancedPrompt(code string, assignment models.AssignmentContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assignment requirements: %s\n", assignment.Requirements)
	fmt.Fprintf(&b, "Concepts already practiced: %s\n\nCODE:\n", strings.Join(assignment.ExpectedConcepts, ", "))
	b.WriteString(code)
	b.WriteString(`

Return valid JSON with this structure (at most 3 suggestions):
{
  "advanced_suggestions": [
    {"topic": "short topic name", "rationale": "why this is a good next step for this code"}
  ]
}`)
	return b.String()
}

const validateSystem = `You are a CS1 (Introduction to Programming) professor reviewing assembled feedback before it is presented to first-year students. Respond in valid JSON only.`

// buildValidatePrompt asks for a polished final report over the aggregated review.
func buildValidatePrompt(state models.ReviewState) string {
	var b strings.Builder
	b.WriteString(`Ensure the feedback below is:
1. Pedagogically sound and appropriate for CS1 level
2. Clear and understandable for beginners
3. Constructive and encouraging while being accurate
4. Focused on fundamental concepts they have learned

Review these components:
`)
	fmt.Fprintf(&b, "- Code:\n%s\n", state.Code)
	fmt.Fprintf(&b, "- Test results: %d total, %d failing\n", len(state.TestOutcomes), len(state.FailingOutcomes()))
	fmt.Fprintf(&b, "- Expected concepts: %s\n", strings.Join(state.Assignment.ExpectedConcepts, ", "))
	fmt.Fprintf(&b, "- Review items: %s\n", compactJSON(state.ReviewItems))
	if len(state.AdvancedTopics) > 0 {
		fmt.Fprintf(&b, "- Advanced topics: %s\n", compactJSON(state.AdvancedTopics))
	}
	fmt.Fprintf(&b, "- Summary overview: %s\n", state.OverviewText)
	b.WriteString(`
Your task (return as JSON):
{
  "final_report": {
    "feedback": [
      {
        "type": "Error|Warning",
        "location": {"start_line": 1, "end_line": 1},
        "code_snippet": "relevant code",
        "issue": "Clear explanation using CS1 terminology",
        "fix_suggestion": "Step-by-step guidance appropriate for beginners",
        "educational_notes": {"concepts": ["loop"], "learning_goal": "What they should learn from this feedback"}
      }
    ],
    "summary": {
      "overview": "Overall assessment in encouraging, clear language",
      "key_concepts": ["main", "concepts"],
      "next_steps": "Clear guidance on what to learn or review"
    },
    "meta": {
      "validated": true,
      "pedagogical_notes": "Any concerns about complexity or prerequisites",
      "difficulty_level": "beginner|intermediate|advanced"
    }
  }
}
Keep one feedback entry per review item. Do not give away complete solutions.`)
	return b.String()
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

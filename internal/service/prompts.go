package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Strob0t/CareerForge/internal/domain/user"
)

// resumePromptLimit caps the resume excerpt included in a prompt.
const resumePromptLimit = 4000

// milestonePrompt builds the prompt for a milestone roadmap toward targetRole.
func milestonePrompt(p *user.Profile, targetRole string, weeks int) string {
	var b strings.Builder
	b.WriteString("You are an expert career coach. Analyse the following profile and generate a structured JSON roadmap.\n\n")
	b.WriteString("PROFILE:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orUnknown(p.Name))
	fmt.Fprintf(&b, "- Industry: %s\n", orUnknown(p.Industry))
	fmt.Fprintf(&b, "- Skills: %s\n", orUnknown(strings.Join(p.Skills, ", ")))
	fmt.Fprintf(&b, "- Resume: %s\n\n", orUnknown(truncate(p.Resume, resumePromptLimit)))
	fmt.Fprintf(&b, "GOAL: Become a %s. The roadmap should span roughly %d weeks.\n\n", targetRole, weeks)
	b.WriteString(`Return ONLY valid JSON in exactly this shape, with no markdown or commentary:
{
  "title": "string",
  "milestones": [
    {
      "title": "string",
      "durationWeeks": number,
      "tasks": [
        {
          "title": "string",
          "taskType": "learning" | "project" | "certification" | "networking",
          "resourceUrl": "string (optional)",
          "estimatedHours": number
        }
      ]
    }
  ]
}`)
	return b.String()
}

// stepsPrompt builds the prompt for a flat list of steps on topic.
func stepsPrompt(topic string) string {
	return fmt.Sprintf(`You are an expert product strategist and professional roadmap architect with 15+ years of experience in tech project planning, stakeholder alignment, and Agile execution.

Generate a detailed, practical, and actionable roadmap for: %s.

Format the response as a JSON array with the following structure for each item:
{
  "title": "Step Title",
  "description": "Detailed description of this step",
  "id": "unique-id-number",
  "estimated_time": "X hours/days/weeks"
}

Important Notes:
1. Return ONLY the JSON array, no other text or markdown formatting
2. Include 5-10 key steps for a comprehensive roadmap
3. Make the steps specific, measurable, and time-bound
4. Focus on practical, actionable items`, topic)
}

// insightPrompt builds the prompt for an industry insight report.
func insightPrompt(industry string) string {
	return fmt.Sprintf(`Analyze the current state of the %s industry and provide insights in ONLY the following JSON format without any additional notes or explanations:
{
  "salaryRanges": [
    { "role": "string", "min": number, "max": number, "median": number, "location": "string" }
  ],
  "growthRate": number,
  "demandLevel": "High" | "Medium" | "Low",
  "topSkills": ["skill1", "skill2"],
  "marketOutlook": "Positive" | "Neutral" | "Negative",
  "keyTrends": ["trend1", "trend2"],
  "recommendedSkills": ["skill1", "skill2"]
}

IMPORTANT: Return ONLY the JSON. No additional text, notes, or markdown formatting.
Include at least 5 common roles for salary ranges.
Growth rate should be a percentage.
Include at least 5 skills and trends.`, industry)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

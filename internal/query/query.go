// Package query builds the prompt handed to the language model from retrieved
// documents and the track statistics.
package query

import (
	"strconv"
	"strings"

	"trackqa/internal/document"
	"trackqa/internal/track"
)

// NotAvailable stands in for any scalar that could not be found.
const NotAvailable = "Not available"

// DefaultQuestion is asked when the caller supplies none.
const DefaultQuestion = "Provide a detailed summary of the hike. Be sure to cover all relevant data points."

// DefaultSampleRunes is how much of the top document is quoted in the prompt.
const DefaultSampleRunes = 500

// DefaultExamples are listed in every prompt as questions the model can answer.
var DefaultExamples = []string{
	"What was the overall difficulty of the hike?",
	"How did the heart rate change over time?",
	"Were there any temperature fluctuations?",
	"What was the estimated number of steps taken?",
}

// Scalar is one headline figure quoted in the prompt.
type Scalar struct {
	Name  string // Heading in the prompt, e.g. "Elevation Gain".
	Label string // Statistics document label it is read from.
	Unit  string
	Value string
}

// scalars lists the headline figures in prompt order.
var scalars = []Scalar{
	{Name: "Elevation Gain", Label: document.LabelAscent, Unit: "meters"},
	{Name: "Total Distance", Label: document.LabelDistance, Unit: "meters"},
	{Name: "Average Heart Rate", Label: document.LabelAvgHeartRate, Unit: "bpm"},
	{Name: "Calories Burned", Label: document.LabelCalories, Unit: "kcal"},
	{Name: "Moving Time", Label: document.LabelMovingTime, Unit: "seconds"},
}

// ExtractValue returns the text after the last colon of the first line whose
// trimmed form starts with "label:". Matching is case-sensitive and anchored
// to the start of the line, so "Heart Rate" does not match "Average Heart
// Rate: 140 bpm".
func ExtractValue(text, label string) string {
	prefix := label + ":"
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		return strings.TrimSpace(line[strings.LastIndex(line, ":")+1:])
	}
	return NotAvailable
}

// Input is everything the composer works from.
type Input struct {
	Question  string
	Retrieved []document.Document
	// StatsText is the statistics document text, usually recovered from the
	// index. Empty when the run has no statistics.
	StatsText string
	// Stats is the structured record, preferred over StatsText for scalars.
	Stats *track.TrackStats
}

// Prompt is a composed prompt.
type Prompt struct {
	Text    string
	Scalars []Scalar
	// Context is the retrieved list with the statistics document inserted first.
	Context []document.Document
}

// Composer renders prompts. The zero value uses the defaults.
type Composer struct {
	SampleRunes int
	Examples    []string
}

// Compose never fails: anything missing reads "Not available".
func (c Composer) Compose(in Input) Prompt {
	statsText := in.StatsText
	if statsText == "" && in.Stats != nil {
		statsText = document.StatsDocument(*in.Stats).Text
	}

	ctxDocs := make([]document.Document, 0, len(in.Retrieved)+1)
	if statsText != "" {
		ctxDocs = append(ctxDocs, document.Document{
			Text:     statsText,
			Metadata: map[string]any{document.KeySource: document.SourceStats},
		})
	}
	ctxDocs = append(ctxDocs, in.Retrieved...)

	values := make([]Scalar, len(scalars))
	for i, s := range scalars {
		s.Value = NotAvailable
		if in.Stats != nil {
			if v, ok := document.StatsValue(*in.Stats, s.Label); ok {
				s.Value = v
			}
		} else if statsText != "" {
			s.Value = ExtractValue(statsText, s.Label)
		}
		values[i] = s
	}

	question := strings.TrimSpace(in.Question)
	if question == "" {
		question = DefaultQuestion
	}

	var sample string
	if len(ctxDocs) > 0 {
		sample = truncate(ctxDocs[0].Text, c.sampleRunes())
	}

	return Prompt{
		Text:    c.render(values, sample, question),
		Scalars: values,
		Context: ctxDocs,
	}
}

func (c Composer) render(values []Scalar, sample, question string) string {
	var b strings.Builder
	b.WriteString("You are an expert in analyzing hiking and fitness data. Below is structured data about a hike, including track statistics and detailed track points.\n\n")

	b.WriteString("### **Track Statistics:**\n")
	for _, s := range values {
		b.WriteString("- ")
		b.WriteString(s.Name)
		b.WriteString(": ")
		b.WriteString(withUnit(s.Value, s.Unit))
		b.WriteByte('\n')
	}

	b.WriteString("\n### **Detailed Track Data (Sample Points):**\n")
	b.WriteString(sample)
	b.WriteString("...\n\n")

	b.WriteString("Using this information, please provide a **detailed summary** of the hike, including key insights. If any values are missing, estimate based on available data.\n\n")

	examples := c.Examples
	if examples == nil {
		examples = DefaultExamples
	}
	if len(examples) > 0 {
		b.WriteString("#### Example questions you can answer:\n")
		for _, q := range examples {
			b.WriteString("- ")
			b.WriteString(q)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString("#### Question:\n")
	b.WriteString(question)
	b.WriteString("\n\n**Now, please provide a detailed analysis.**\n")
	return b.String()
}

func (c Composer) sampleRunes() int {
	if c.SampleRunes > 0 {
		return c.SampleRunes
	}
	return DefaultSampleRunes
}

// withUnit appends unit to bare numbers only; values that already carry a
// unit, and NotAvailable, are left as they are.
func withUnit(v, unit string) string {
	if unit == "" {
		return v
	}
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return v
	}
	return v + " " + unit
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

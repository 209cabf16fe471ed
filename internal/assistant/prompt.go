package assistant

import "strings"

// Flags toggle optional clauses of the chat system prompt.
type Flags struct {
	IncludeMedicineAdvice       bool
	IncludeDoctorRecommendation bool
}

const (
	basePrompt = "You are a helpful and trustworthy medical assistant who gives accurate, concise, and safe medical advice. You do not diagnose but suggest what a patient might consider."

	medicineClause = "When appropriate, mention common over-the-counter or prescription medicines the patient could discuss with a pharmacist, along with their usual precautions."
	doctorClause   = "When symptoms could be serious or persistent, recommend which kind of doctor or specialist to consult and how urgently."

	reportPrompt = "You are a medical assistant explaining a patient's medical report in plain language. Summarize the key findings and point out values outside their usual ranges. Do not diagnose."
	imagePrompt  = "You are a medical assistant. Explain in simple terms what a medical image with the given description may show and what a patient might ask their doctor about it. Do not diagnose."
)

// BuildSystemPrompt returns the base preamble followed by the clauses enabled in flags.
func BuildSystemPrompt(flags Flags) string {
	parts := []string{basePrompt}
	if flags.IncludeMedicineAdvice {
		parts = append(parts, medicineClause)
	}
	if flags.IncludeDoctorRecommendation {
		parts = append(parts, doctorClause)
	}
	return strings.Join(parts, " ")
}

package gridsearch

import (
	"fmt"
	"strings"
)

const fieldPromptTmpl = `You are an automated data extraction system. Extract a single field from the document below.

Field: %s
Instruction: %s

If the value is not present in the document, reply "Not Found".
Reply with the value only. Do not add explanations or formatting.

Document:
%s

Value:`

const consolidatedPromptTmpl = `You are an automated data extraction system. Your task is to extract information from the provided document into a structured JSON format.

Instructions:
1. Extract values for each field listed below based on the description.
2. If a value is not present in the document, return null, or the string "No" for the Yes/No fields (%s).
3. Return ONLY a valid JSON object. Do not include markdown formatting (like ` + "```json" + `), explanations, or extra text.

Fields to Extract:
%s
Document:
%s

JSON Output:`

// FieldPrompt asks for one field.
func FieldPrompt(f Field, document string) string {
	return fmt.Sprintf(fieldPromptTmpl, f.Name, f.Description, document)
}

// ConsolidatedPrompt asks for every named field as one JSON object.
func ConsolidatedPrompt(fields []string, document string) string {
	var desc strings.Builder
	var yn []string
	for _, name := range fields {
		f, ok := LookupField(name)
		if !ok {
			f = Field{Name: name, Description: "Extract " + name}
		}
		fmt.Fprintf(&desc, "- %q: %s\n", f.Name, f.Description)
		if IsYesNo(name) {
			yn = append(yn, name)
		}
	}
	return fmt.Sprintf(consolidatedPromptTmpl, strings.Join(yn, ", "), desc.String(), document)
}

package ml

import "fmt"

// analysisPrompt embeds the exact schema the decoder expects. The three
// environmental* lists are requested from the model but not kept in the report.
const analysisPrompt = `Analyze this product image and provide a detailed sustainability assessment.
Your response MUST be a valid JSON object. DO NOT include any markdown formatting (e.g., ` + "```json or ```" + `).
Strictly return only the JSON.

{
    "productName": "string",
    "confidence": number,
    "ecoTip": "string",
    "ecoScore": number,
    "biodegradability": number,
    "carbonFootprint": number,
    "sustainability": number,
    "toxicity": number,
    "categories": [
        {
            "title": "string",
            "score": number,
            "description": "string",
            "impactDetails": ["string"]
        }
    ],
    "alternatives": [
        {
            "productName": "string",
            "features": ["string"],
            "amazonLink": "string",
            "ecoScore": number(1-100)
        }
    ],
    "environmentalAlerts": ["string"],
    "environmentalBenefits": ["string"],
    "environmentalConcerns": ["string"]
}

Guidelines:
1. Provide at least 2 categories.
2. Suggest 5 alternatives.
3. All scores (ecoScore, biodegradability, carbonFootprint, sustainability, toxicity, category scores) must be integers between 0-100.
4. ` + "`confidence`" + ` should be a float/double between 0.0 and 1.0.
5. Provide meaningful entries for environmentalAlerts, environmentalBenefits, and environmentalConcerns if applicable, otherwise empty arrays.
6. Additional context: %s
`

// BuildAnalysisPrompt returns the instruction text sent alongside the image.
// The user context is passed through verbatim.
func BuildAnalysisPrompt(userPrompt string) string {
	return fmt.Sprintf(analysisPrompt, userPrompt)
}

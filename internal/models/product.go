package models

import "fmt"

// ProductDetails represents the sustainability report produced for one scanned product
type ProductDetails struct {
	ProductName string  `json:"productName"`
	Confidence  float64 `json:"confidence"` // 0.0 - 1.0
	EcoTip      string  `json:"ecoTip"`
	EcoScore    Score   `json:"ecoScore"` // 0 - 100

	// Impact breakdown (0 - 100)
	Biodegradability Score `json:"biodegradability"`
	Toxicity         Score `json:"toxicity"`
	Sustainability   Score `json:"sustainability"`
	CarbonFootprint  Score `json:"carbonFootprint"`

	Categories   []Category    `json:"categories"`
	Alternatives []Alternative `json:"alternatives"`
}

// Category is one scored aspect of the product's environmental impact
type Category struct {
	Title         string     `json:"title"`
	Score         FlexString `json:"score"`
	Description   string     `json:"description"`
	ImpactDetails []string   `json:"impactDetails"`
}

// Alternative is a more sustainable product suggested in place of the scanned one
type Alternative struct {
	ProductName string   `json:"productName"`
	Features    []string `json:"features"`
	AmazonLink  string   `json:"amazonLink"`
	EcoScore    Score    `json:"ecoScore"` // 1 - 100
}

// FillEmptyLists replaces nil lists with empty ones so the report always
// serializes lists as [] rather than null.
func (p *ProductDetails) FillEmptyLists() {
	if p.Categories == nil {
		p.Categories = []Category{}
	}
	if p.Alternatives == nil {
		p.Alternatives = []Alternative{}
	}
	for i := range p.Categories {
		if p.Categories[i].ImpactDetails == nil {
			p.Categories[i].ImpactDetails = []string{}
		}
	}
	for i := range p.Alternatives {
		if p.Alternatives[i].Features == nil {
			p.Alternatives[i].Features = []string{}
		}
	}
}

// OutOfRange returns the names of fields whose values fall outside the ranges
// the model is asked to respect. Nothing is clamped; callers decide what to do.
func (p *ProductDetails) OutOfRange() []string {
	var fields []string
	if p.Confidence < 0 || p.Confidence > 1 {
		fields = append(fields, "confidence")
	}
	scores := []struct {
		name  string
		value Score
	}{
		{"ecoScore", p.EcoScore},
		{"biodegradability", p.Biodegradability},
		{"toxicity", p.Toxicity},
		{"sustainability", p.Sustainability},
		{"carbonFootprint", p.CarbonFootprint},
	}
	for _, s := range scores {
		if s.value < 0 || s.value > 100 {
			fields = append(fields, s.name)
		}
	}
	for i, alt := range p.Alternatives {
		if alt.EcoScore < 1 || alt.EcoScore > 100 {
			fields = append(fields, fmt.Sprintf("alternatives[%d].ecoScore", i))
		}
	}
	return fields
}

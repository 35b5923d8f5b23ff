// internal/services/ai_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/rfp-backend/internal/llm"
	"github.com/javajoker/rfp-backend/internal/models"
	"github.com/javajoker/rfp-backend/internal/utils"
)

// Vendor replies longer than this are cut before prompting.
const maxPromptBodyRunes = 20000

type AIService struct {
	generator llm.Generator
	timeout   time.Duration
	now       func() time.Time
}

// ParsedRFP is a draft RFP extracted from free text. It is returned for
// review and never saved directly.
type ParsedRFP struct {
	Title                  string           `json:"title" validate:"required"`
	Description            string           `json:"description"`
	Budget                 *float64         `json:"budget" validate:"omitempty,gte=0"`
	Currency               string           `json:"currency" validate:"currency_code"`
	DeliveryDeadline       *models.Date     `json:"delivery_deadline"`
	PaymentTerms           *string          `json:"payment_terms"`
	WarrantyRequirements   *string          `json:"warranty_requirements"`
	Items                  []models.RFPItem `json:"items" validate:"min=1,dive"`
	AdditionalRequirements *string          `json:"additional_requirements"`
}

type ParsedProposal struct {
	TotalPrice        *float64              `json:"total_price" validate:"omitempty,gte=0"`
	Currency          string                `json:"currency"`
	DeliveryTimeDays  *int                  `json:"delivery_time_days" validate:"omitempty,gte=0"`
	PaymentTerms      *string               `json:"payment_terms"`
	WarrantyOffered   *string               `json:"warranty_offered"`
	ItemsQuoted       []models.ProposalItem `json:"items_quoted"`
	AdditionalTerms   *string               `json:"additional_terms"`
	CompletenessScore int                   `json:"completeness_score" validate:"gte=0,lte=100"`
}

type VendorScore struct {
	VendorID          uint     `json:"vendor_id" validate:"required"`
	VendorName        string   `json:"vendor_name"`
	OverallScore      float64  `json:"overall_score" validate:"gte=0,lte=100"`
	PriceScore        float64  `json:"price_score" validate:"gte=0,lte=100"`
	DeliveryScore     float64  `json:"delivery_score" validate:"gte=0,lte=100"`
	TermsScore        float64  `json:"terms_score" validate:"gte=0,lte=100"`
	WarrantyScore     float64  `json:"warranty_score" validate:"gte=0,lte=100"`
	CompletenessScore float64  `json:"completeness_score" validate:"gte=0,lte=100"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
}

type Recommendation struct {
	RecommendedVendorID uint   `json:"recommended_vendor_id" validate:"required"`
	Reasoning           string `json:"reasoning"`
}

type Comparison struct {
	VendorScores   []VendorScore  `json:"vendor_scores" validate:"min=1,dive"`
	Summary        string         `json:"summary"`
	Recommendation Recommendation `json:"recommendation"`
	Concerns       []string       `json:"concerns"`
}

// rawParsedProposal accepts fractional numbers where integers are stored.
type rawParsedProposal struct {
	TotalPrice        *float64              `json:"total_price"`
	Currency          string                `json:"currency"`
	DeliveryTimeDays  *float64              `json:"delivery_time_days"`
	PaymentTerms      *string               `json:"payment_terms"`
	WarrantyOffered   *string               `json:"warranty_offered"`
	ItemsQuoted       []models.ProposalItem `json:"items_quoted"`
	AdditionalTerms   *string               `json:"additional_terms"`
	CompletenessScore *float64              `json:"completeness_score"`
}

func NewAIService(generator llm.Generator, timeout time.Duration) *AIService {
	return &AIService{
		generator: generator,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (s *AIService) ParseRFPFromText(ctx context.Context, input string) (*ParsedRFP, error) {
	today := s.now()
	prompt := fmt.Sprintf(parseRFPPrompt,
		today.Format(models.DateLayout),
		input,
		today.AddDate(0, 0, 30).Format(models.DateLayout),
		today.Format(models.DateLayout),
		today.AddDate(0, 0, 30).Format(models.DateLayout),
	)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIParse, err)
	}
	nullIfBlank(fields, "budget", "delivery_deadline")

	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIParse, err)
	}

	var parsed ParsedRFP
	if err := json.Unmarshal(normalized, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIParse, err)
	}

	parsed.Title = strings.TrimSpace(parsed.Title)
	parsed.Currency = strings.ToUpper(strings.TrimSpace(parsed.Currency))
	if parsed.Currency == "" {
		parsed.Currency = "USD"
	}
	if parsed.DeliveryDeadline != nil && parsed.DeliveryDeadline.IsZero() {
		parsed.DeliveryDeadline = nil
	}
	if parsed.Items == nil {
		parsed.Items = []models.RFPItem{}
	}

	if err := utils.ValidateStruct(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIParse, err)
	}

	logrus.WithFields(logrus.Fields{
		"title":             parsed.Title,
		"items":             len(parsed.Items),
		"delivery_deadline": parsed.DeliveryDeadline,
	}).Info("Parsed RFP from natural language")

	return &parsed, nil
}

func (s *AIService) ParseProposalFromEmail(ctx context.Context, body string, rfp *models.RFP) (*ParsedProposal, error) {
	items, err := json.Marshal(rfp.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode RFP items: %w", err)
	}

	budget := utils.FormatCurrency(rfp.Budget, rfp.Currency)
	if budget == utils.Placeholder {
		budget = "not specified"
	}
	deadline := "not specified"
	if rfp.DeliveryDeadline != nil {
		if d := utils.FormatDate(&rfp.DeliveryDeadline.Time); d != utils.Placeholder {
			deadline = d
		}
	}

	prompt := fmt.Sprintf(parseProposalPrompt, rfp.Title, budget, deadline, items,
		utils.TruncateText(body, maxPromptBodyRunes))

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var raw rawParsedProposal
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIParse, err)
	}

	parsed := ParsedProposal{
		TotalPrice:      raw.TotalPrice,
		Currency:        strings.ToUpper(strings.TrimSpace(raw.Currency)),
		PaymentTerms:    raw.PaymentTerms,
		WarrantyOffered: raw.WarrantyOffered,
		ItemsQuoted:     raw.ItemsQuoted,
		AdditionalTerms: raw.AdditionalTerms,
	}
	if parsed.Currency == "" {
		parsed.Currency = rfp.Currency
	}
	if raw.DeliveryTimeDays != nil {
		days := int(math.Round(*raw.DeliveryTimeDays))
		parsed.DeliveryTimeDays = &days
	}
	if raw.CompletenessScore != nil {
		parsed.CompletenessScore = int(math.Round(*raw.CompletenessScore))
	}
	if parsed.ItemsQuoted == nil {
		parsed.ItemsQuoted = []models.ProposalItem{}
	}

	if err := utils.ValidateStruct(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIParse, err)
	}

	logrus.WithFields(logrus.Fields{
		"rfp_id":             rfp.ID,
		"completeness_score": parsed.CompletenessScore,
	}).Info("Parsed proposal from email")

	return &parsed, nil
}

// comparisonProposal is the view of a proposal given to the model.
type comparisonProposal struct {
	VendorID          uint                  `json:"vendor_id"`
	VendorName        string                `json:"vendor_name"`
	CompanyName       string                `json:"company_name,omitempty"`
	TotalPrice        *float64              `json:"total_price"`
	Currency          string                `json:"currency"`
	PriceDisplay      string                `json:"price_display"`
	DeliveryTimeDays  *int                  `json:"delivery_time_days"`
	PaymentTerms      string                `json:"payment_terms"`
	WarrantyOffered   string                `json:"warranty_offered"`
	AdditionalTerms   string                `json:"additional_terms"`
	CompletenessScore int                   `json:"completeness_score"`
	Items             []models.ProposalItem `json:"items"`
}

func (s *AIService) GenerateProposalComparison(ctx context.Context, rfp *models.RFP, proposals []models.Proposal) (*Comparison, error) {
	views := make([]comparisonProposal, 0, len(proposals))
	vendorIDs := make(map[uint]bool, len(proposals))
	for _, p := range proposals {
		view := comparisonProposal{
			VendorID:          p.VendorID,
			TotalPrice:        p.TotalPrice,
			Currency:          p.Currency,
			PriceDisplay:      utils.FormatCurrency(p.TotalPrice, p.Currency),
			DeliveryTimeDays:  p.DeliveryTimeDays,
			PaymentTerms:      p.PaymentTerms,
			WarrantyOffered:   p.WarrantyOffered,
			AdditionalTerms:   p.AdditionalTerms,
			CompletenessScore: p.CompletenessScore,
			Items:             p.ParsedItems,
		}
		if p.Vendor != nil {
			view.VendorName = p.Vendor.Name
			view.CompanyName = p.Vendor.CompanyName
		}
		views = append(views, view)
		vendorIDs[p.VendorID] = true
	}

	rfpJSON, err := json.MarshalIndent(rfp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode RFP: %w", err)
	}
	proposalsJSON, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode proposals: %w", err)
	}

	text, err := s.generate(ctx, fmt.Sprintf(comparisonPrompt, rfpJSON, proposalsJSON))
	if err != nil {
		return nil, err
	}

	var comparison Comparison
	if err := json.Unmarshal([]byte(text), &comparison); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIParse, err)
	}

	if err := utils.ValidateStruct(&comparison); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIParse, err)
	}
	for _, score := range comparison.VendorScores {
		if !vendorIDs[score.VendorID] {
			return nil, fmt.Errorf("%w: score for unknown vendor %d", ErrAIParse, score.VendorID)
		}
	}
	if !vendorIDs[comparison.Recommendation.RecommendedVendorID] {
		return nil, fmt.Errorf("%w: recommended vendor %d was not compared", ErrAIParse, comparison.Recommendation.RecommendedVendorID)
	}
	if comparison.Concerns == nil {
		comparison.Concerns = []string{}
	}

	logrus.WithFields(logrus.Fields{
		"rfp_id":             rfp.ID,
		"proposals":          len(proposals),
		"recommended_vendor": comparison.Recommendation.RecommendedVendorID,
	}).Info("Generated proposal comparison")

	return &comparison, nil
}

func (s *AIService) generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logrus.WithError(err).WithField("provider", s.generator.Name()).Error("AI generation failed")
		return "", fmt.Errorf("%w: %w", ErrAIGenerate, err)
	}

	return StripCodeFences(text), nil
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a language tag, and trims whitespace.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	rest := text[3:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[i+1:]
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}

// nullIfBlank replaces "" and "null" string values with JSON null.
func nullIfBlank(fields map[string]json.RawMessage, keys ...string) {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(value, &s) != nil {
			continue
		}
		if s = strings.TrimSpace(s); s == "" || strings.EqualFold(s, "null") {
			fields[key] = json.RawMessage("null")
		}
	}
}

const parseRFPPrompt = `You are an expert procurement assistant. Extract structured RFP information from the following natural language description.

TODAY'S DATE: %s

User Input: %s

Extract and return ONLY a valid JSON object with the following structure (no markdown, no code blocks, just pure JSON):
{
  "title": "Brief descriptive title for the RFP",
  "description": "Full description of what is being procured",
  "budget": numeric value only (or null if not mentioned),
  "currency": "USD/EUR/INR/etc" (or "USD" as default),
  "delivery_deadline": "YYYY-MM-DD format" (calculate actual date if relative, e.g. "30 days" from today means %s),
  "payment_terms": "extracted payment terms" (or null if not mentioned),
  "warranty_requirements": "warranty details" (or null if not mentioned),
  "items": [
    {
      "name": "item name",
      "quantity": numeric,
      "specifications": "detailed specs"
    }
  ],
  "additional_requirements": "any other requirements" (or null if not mentioned)
}

DATE RULES:
- Today's date is %s
- "30 days deadline" means today + 30 days = %s
- "within 2 weeks" means today + 14 days
- "by next month" means the last day of next month
- Always return dates as YYYY-MM-DD and never as relative terms

Important:
- If information is missing, use null
- All numeric values must be JSON numbers, not strings
- Return ONLY the JSON object`

const parseProposalPrompt = `You are an expert at analyzing vendor proposals. Extract structured information from this vendor response.

RFP Details:
Title: %s
Budget: %s
Delivery Deadline: %s
Items Requested: %s

Vendor Email Body:
%s

Extract and return ONLY a valid JSON object (no markdown, no code blocks):
{
  "total_price": numeric value (or null),
  "currency": "USD/EUR/INR/etc",
  "delivery_time_days": numeric (or null),
  "payment_terms": "extracted terms" (or null),
  "warranty_offered": "warranty details" (or null),
  "items_quoted": [
    {
      "name": "item",
      "quantity": numeric,
      "unit_price": numeric,
      "specifications": "specs offered"
    }
  ],
  "additional_terms": "other conditions" (or null),
  "completeness_score": 0-100 (how complete is this response based on RFP requirements)
}

Important:
- Calculate total_price if only item prices are given
- All numeric values must be JSON numbers, not strings
- Return ONLY the JSON object`

const comparisonPrompt = `You are a procurement expert evaluating vendor proposals.

RFP Requirements:
%s

Vendor Proposals:
%s

Analyze and return ONLY a valid JSON object (no markdown, no code blocks):
{
  "vendor_scores": [
    {
      "vendor_id": 1,
      "vendor_name": "...",
      "overall_score": 85,
      "price_score": 90,
      "delivery_score": 80,
      "terms_score": 85,
      "warranty_score": 90,
      "completeness_score": 85,
      "strengths": ["list of strengths"],
      "weaknesses": ["list of weaknesses"]
    }
  ],
  "summary": "comparative analysis highlighting key differences",
  "recommendation": {
    "recommended_vendor_id": 1,
    "reasoning": "detailed explanation of why this vendor is recommended"
  },
  "concerns": ["list of concerns, or an empty array"]
}

Scoring criteria (all scores 0-100):
- Price competitiveness (30%%): lower price = higher score
- Delivery timeline (25%%): faster delivery = higher score
- Payment terms (15%%): better terms = higher score
- Warranty coverage (15%%): better warranty = higher score
- Completeness (15%%): more complete response = higher score

Only score the vendors listed above, using their vendor_id values.
Return ONLY the JSON object.`

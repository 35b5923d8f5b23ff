// internal/tests/api_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/rfp-backend/internal/config"
	"github.com/javajoker/rfp-backend/internal/database"
	"github.com/javajoker/rfp-backend/internal/mail"
	"github.com/javajoker/rfp-backend/internal/models"
	"github.com/javajoker/rfp-backend/internal/router"
	"github.com/javajoker/rfp-backend/internal/services"
	"github.com/javajoker/rfp-backend/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta json.RawMessage `json:"meta"`
}

type APITestSuite struct {
	suite.Suite
	db        *gorm.DB
	cfg       *config.Config
	svc       *router.Services
	router    *gin.Engine
	generator *fakeGenerator
	mailer    *fakeMailer
	mailbox   *fakeMailbox
	requests  int
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (suite *APITestSuite) SetupTest() {
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	suite.Require().NoError(err)
	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	suite.db = db

	suite.cfg = &config.Config{
		Version: "test",
		Auth:    config.AuthConfig{JWTSecret: "api-test-secret"},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}

	suite.generator = &fakeGenerator{}
	suite.mailer = &fakeMailer{}
	suite.mailbox = &fakeMailbox{}

	storage, err := services.NewStorageService(config.AWSConfig{RawEmailDir: suite.T().TempDir()})
	suite.Require().NoError(err)

	ai := services.NewAIService(suite.generator, 5*time.Second)
	rfps := services.NewRFPService(db)
	vendors := services.NewVendorService(db)
	proposals := services.NewProposalService(db, rfps, ai)

	suite.svc = &router.Services{
		RFP:      rfps,
		Vendor:   vendors,
		Proposal: proposals,
		AI:       ai,
		Email:    services.NewEmailService(db, suite.mailer, rfps, vendors, "procurement@buyer.example"),
		Storage:  storage,
		Receiver: services.NewEmailReceiverService(db, suite.mailbox, storage, vendors, rfps, proposals, ai, services.ReceiverOptions{
			Interval:   time.Hour,
			FetchLimit: 50,
		}),
	}
	suite.router = router.Initialize(suite.svc, suite.cfg)
}

func (suite *APITestSuite) TearDownTest() {
	if sqlDB, err := suite.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// do sends a JSON request from a fresh client address so the shared rate
// limiters never trip.
func (suite *APITestSuite) do(method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	suite.requests++
	req.RemoteAddr = fmt.Sprintf("10.%d.%d.%d:40000", suite.requests/65536%256, suite.requests/256%256, suite.requests%256)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response envelope
	if w.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	}
	return w, response
}

func (suite *APITestSuite) createRFP(title string) *models.RFP {
	budget := 50000.0
	rfp, err := suite.svc.RFP.CreateRFP(context.Background(), &services.CreateRFPRequest{
		Title:       title,
		Description: "Procurement of " + title,
		Budget:      &budget,
		Items:       []models.RFPItem{{Name: "Laptop", Quantity: 20, Specifications: "16GB RAM"}},
	})
	suite.Require().NoError(err)
	return rfp
}

func (suite *APITestSuite) createVendor(name, email string) *models.Vendor {
	vendor, err := suite.svc.Vendor.CreateVendor(context.Background(), &services.CreateVendorRequest{Name: name, Email: email})
	suite.Require().NoError(err)
	return vendor
}

func (suite *APITestSuite) TestHealth() {
	w, _ := suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.NotEmpty(w.Header().Get("X-Request-ID"))

	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Version string `json:"version"`
		Poller  struct {
			State   string `json:"state"`
			Running bool   `json:"running"`
		} `json:"poller"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal("ok", body.Status)
	suite.Equal("RFP Management System API is running", body.Message)
	suite.Equal("test", body.Version)
	suite.Equal("stopped", body.Poller.State)
}

func (suite *APITestSuite) TestUnknownRoute() {
	w, response := suite.do(http.MethodGet, "/api/nothing-here", nil, "Accept-Language", "es-MX,es;q=0.9")
	suite.Equal(http.StatusNotFound, w.Code)
	suite.False(response.Success)
	suite.Require().NotNil(response.Error)
	suite.Equal("NOT_FOUND", response.Error.Code)
	suite.Equal("Ruta no encontrada", response.Error.Message)
}

func (suite *APITestSuite) TestCreateAndGetRFP() {
	w, response := suite.do(http.MethodPost, "/api/rfps", gin.H{
		"title":             "Laptops",
		"description":       "20 laptops for the sales team",
		"budget":            50000,
		"delivery_deadline": "2026-11-15",
		"items":             []gin.H{{"name": "Laptop", "quantity": 20}},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created models.RFP
	suite.Require().NoError(json.Unmarshal(response.Data, &created))
	suite.Equal(models.RFPStatusDraft, created.Status)
	suite.Equal("USD", created.Currency)

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/rfps/%d", created.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var loaded models.RFP
	suite.Require().NoError(json.Unmarshal(response.Data, &loaded))
	suite.Equal("Laptops", loaded.Title)
	suite.Require().NotNil(loaded.DeliveryDeadline)
	suite.Equal("2026-11-15", loaded.DeliveryDeadline.String())
}

func (suite *APITestSuite) TestCreateRFPValidation() {
	w, response := suite.do(http.MethodPost, "/api/rfps", gin.H{"title": "Laptops", "description": "no items"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Require().NotNil(response.Error)
	suite.Equal("VALIDATION_ERROR", response.Error.Code)

	var details []utils.ValidationError
	suite.Require().NoError(json.Unmarshal(response.Error.Details, &details))
	suite.Require().Len(details, 1)
	suite.Equal("items", details[0].Field)

	w, response = suite.do(http.MethodPost, "/api/rfps", "not an object")
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("BAD_REQUEST", response.Error.Code)
}

func (suite *APITestSuite) TestRFPNotFoundAndBadID() {
	w, response := suite.do(http.MethodGet, "/api/rfps/999", nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("RFP not found", response.Error.Message)

	w, response = suite.do(http.MethodGet, "/api/rfps/abc", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Invalid RFP ID", response.Error.Message)

	w, _ = suite.do(http.MethodDelete, "/api/rfps/999", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestListRFPsPaginated() {
	suite.createRFP("Laptops")
	suite.createRFP("Chairs")
	suite.createRFP("Monitors")

	w, response := suite.do(http.MethodGet, "/api/rfps?limit=2&page=1", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("3", w.Header().Get("X-Total-Count"))
	suite.Equal("2", w.Header().Get("X-Total-Pages"))

	var rfps []models.RFP
	suite.Require().NoError(json.Unmarshal(response.Data, &rfps))
	suite.Len(rfps, 2)

	w, response = suite.do(http.MethodGet, "/api/rfps?status=bogus", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("BAD_REQUEST", response.Error.Code)
}

func (suite *APITestSuite) TestUpdateAndDeleteRFP() {
	rfp := suite.createRFP("Laptops")

	w, response := suite.do(http.MethodPut, fmt.Sprintf("/api/rfps/%d", rfp.ID), gin.H{"status": "closed"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("RFP updated successfully", response.Message)

	w, response = suite.do(http.MethodPut, fmt.Sprintf("/api/rfps/%d", rfp.ID), gin.H{"status": "archived"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("VALIDATION_ERROR", response.Error.Code)

	w, _ = suite.do(http.MethodDelete, fmt.Sprintf("/api/rfps/%d", rfp.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodGet, fmt.Sprintf("/api/rfps/%d", rfp.ID), nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestCreateFromText() {
	w, response := suite.do(http.MethodPost, "/api/rfps/create-from-text", gin.H{"naturalLanguageInput": "   "})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Natural language input is required", response.Error.Message)

	suite.generator.set(func(string) (string, error) {
		return "```json\n" + `{"title": "Office Laptops", "description": "20 laptops", "budget": 50000, "currency": "usd", "delivery_deadline": "2026-11-15", "items": [{"name": "Laptop", "quantity": 20}]}` + "\n```", nil
	})

	w, response = suite.do(http.MethodPost, "/api/rfps/create-from-text", gin.H{"naturalLanguageInput": "I need 20 laptops"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var parsed services.ParsedRFP
	suite.Require().NoError(json.Unmarshal(response.Data, &parsed))
	suite.Equal("Office Laptops", parsed.Title)
	suite.Equal("USD", parsed.Currency)

	// Nothing is saved until the draft is submitted
	var count int64
	suite.db.Model(&models.RFP{}).Count(&count)
	suite.Zero(count)

	suite.generator.set(func(string) (string, error) { return "I cannot help with that", nil })
	w, response = suite.do(http.MethodPost, "/api/rfps/create-from-text", gin.H{"naturalLanguageInput": "I need 20 laptops"})
	suite.Equal(http.StatusBadGateway, w.Code)
	suite.Equal("AI_ERROR", response.Error.Code)
	suite.Equal("Failed to parse RFP from natural language input", response.Error.Message)
}

func (suite *APITestSuite) TestVendorDuplicateEmail() {
	w, _ := suite.do(http.MethodPost, "/api/vendors", gin.H{"name": "Acme", "email": "sales@acme.example"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, response := suite.do(http.MethodPost, "/api/vendors", gin.H{"name": "Acme 2", "email": "Sales@Acme.example"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("CONFLICT", response.Error.Code)
	suite.Equal("Vendor with this email already exists", response.Error.Message)

	w, response = suite.do(http.MethodPost, "/api/vendors", gin.H{"name": "Broken", "email": "not-an-email"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("VALIDATION_ERROR", response.Error.Code)
}

func (suite *APITestSuite) TestAssignAndListVendorsForRFP() {
	rfp := suite.createRFP("Laptops")
	acme := suite.createVendor("Acme", "sales@acme.example")
	suite.createVendor("Globex", "bids@globex.example")

	w, response := suite.do(http.MethodPost, fmt.Sprintf("/api/vendors/rfp/%d/assign", rfp.ID), gin.H{"vendorIds": []uint{}})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("vendorIds must be a non-empty array", response.Error.Message)

	w, _ = suite.do(http.MethodPost, fmt.Sprintf("/api/vendors/rfp/%d/assign", rfp.ID), gin.H{"vendorIds": []uint{acme.ID}})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/vendors/rfp/%d", rfp.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var vendors []models.VendorWithStatus
	suite.Require().NoError(json.Unmarshal(response.Data, &vendors))
	suite.Require().Len(vendors, 2)
	suite.Require().NotNil(vendors[0].RFPStatus)
	suite.Equal(models.AssociationStatusPending, *vendors[0].RFPStatus)
	suite.Nil(vendors[1].RFPStatus)

	w, _ = suite.do(http.MethodGet, "/api/vendors/rfp/999", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestSendReceiveCompare() {
	rfp := suite.createRFP("Laptops")
	acme := suite.createVendor("Acme", "sales@acme.example")
	globex := suite.createVendor("Globex", "bids@globex.example")

	w, response := suite.do(http.MethodPost, fmt.Sprintf("/api/rfps/%d/send", rfp.ID), gin.H{"vendorIds": []uint{acme.ID, globex.ID}})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var sent struct {
		Message string               `json:"message"`
		Results services.SendResults `json:"results"`
	}
	suite.Require().NoError(json.Unmarshal(response.Data, &sent))
	suite.Equal("RFP sent to 2 vendor(s)", sent.Message)
	suite.Len(sent.Results.Success, 2)
	suite.Empty(sent.Results.Failed)

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/rfps/%d/comparison", rfp.ID), nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("At least two proposals are required for a comparison", response.Error.Message)

	suite.generator.set(func(prompt string) (string, error) {
		if bytes.Contains([]byte(prompt), []byte("Globex")) && bytes.Contains([]byte(prompt), []byte("Acme")) {
			return fmt.Sprintf(`{"vendor_scores": [
				{"vendor_id": %d, "vendor_name": "Acme", "overall_score": 85, "strengths": ["price"], "weaknesses": []},
				{"vendor_id": %d, "vendor_name": "Globex", "overall_score": 70, "strengths": [], "weaknesses": ["slow"]}
			], "summary": "Acme wins", "recommendation": {"recommended_vendor_id": %d, "reasoning": "cheaper"}}`, acme.ID, globex.ID, acme.ID), nil
		}
		return `{"total_price": 24000, "currency": "USD", "delivery_time_days": 14, "completeness_score": 80, "items_quoted": []}`, nil
	})

	subject := "Re: " + services.RFPEmailSubject(rfp)
	suite.mailbox.messages = []mail.RawMessage{
		{UID: 1, Raw: []byte(rawReply("sales@acme.example", subject, "<acme-1@acme.example>", "Total 24000 USD"))},
		{UID: 2, Raw: []byte(rawReply("bids@globex.example", subject, "<globex-1@globex.example>", "Total 26000 USD"))},
		{UID: 3, Raw: []byte(rawReply("stranger@else.example", subject, "<x@else.example>", "Hello"))},
	}

	w, response = suite.do(http.MethodPost, "/api/emails/check", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var checked struct {
		Message   string                   `json:"message"`
		Processed int                      `json:"processed"`
		Results   []services.ProcessResult `json:"results"`
	}
	suite.Require().NoError(json.Unmarshal(response.Data, &checked))
	suite.Equal(2, checked.Processed)
	suite.Require().Len(checked.Results, 3)
	suite.Equal(services.OutcomeSkipped, checked.Results[2].Outcome)

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/rfps/%d/proposals", rfp.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var proposals []models.Proposal
	suite.Require().NoError(json.Unmarshal(response.Data, &proposals))
	suite.Len(proposals, 2)

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/proposals/%d", proposals[0].ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/rfps/%d/comparison", rfp.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var comparison services.ComparisonResult
	suite.Require().NoError(json.Unmarshal(response.Data, &comparison))
	suite.Equal(2, comparison.ProposalCount)
	suite.Equal(acme.ID, comparison.Comparison.Recommendation.RecommendedVendorID)

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/rfps/%d/proposals/stats", rfp.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var stats models.ProposalStats
	suite.Require().NoError(json.Unmarshal(response.Data, &stats))
	suite.Equal(int64(2), stats.TotalProposals)
	suite.Require().NotNil(stats.AvgAIScore)
	suite.InDelta(77.5, *stats.AvgAIScore, 0.001)

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/rfps/%d/emails", rfp.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var logs []models.EmailLog
	suite.Require().NoError(json.Unmarshal(response.Data, &logs))
	suite.Len(logs, 4)

	var incoming, outgoing *models.EmailLog
	for i := range logs {
		switch logs[i].Direction {
		case models.EmailDirectionIncoming:
			incoming = &logs[i]
		case models.EmailDirectionOutgoing:
			outgoing = &logs[i]
		}
	}
	suite.Require().NotNil(incoming)
	suite.Require().NotNil(outgoing)

	w, response = suite.do(http.MethodGet, fmt.Sprintf("/api/emails/%d/raw", incoming.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var archived services.ArchivedEmail
	suite.Require().NoError(json.Unmarshal(response.Data, &archived))
	suite.Equal(incoming.RawObjectKey, archived.Key)

	w, _ = suite.do(http.MethodGet, fmt.Sprintf("/api/emails/%d/raw", outgoing.ID), nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w, response = suite.do(http.MethodGet, "/api/rfps/"+fmt.Sprint(rfp.ID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var loaded models.RFP
	suite.Require().NoError(json.Unmarshal(response.Data, &loaded))
	suite.Equal(models.RFPStatusSent, loaded.Status)
}

func (suite *APITestSuite) TestPollerStatus() {
	w, response := suite.do(http.MethodGet, "/api/emails/status", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var status services.PollerStatus
	suite.Require().NoError(json.Unmarshal(response.Data, &status))
	suite.Equal(services.PollerStateStopped, status.State)
	suite.Equal("1h0m0s", status.Interval)
}

func (suite *APITestSuite) TestEmailCheckDisabled() {
	suite.svc.Receiver = nil
	suite.router = router.Initialize(suite.svc, suite.cfg)

	w, response := suite.do(http.MethodPost, "/api/emails/check", nil)
	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal("POLLING_DISABLED", response.Error.Code)
}

func (suite *APITestSuite) TestAuthRequiredWhenEnabled() {
	suite.cfg.Auth.Enabled = true
	suite.router = router.Initialize(suite.svc, suite.cfg)

	w, response := suite.do(http.MethodGet, "/api/rfps", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("UNAUTHORIZED", response.Error.Code)

	w, _ = suite.do(http.MethodGet, "/api/rfps", nil, "Authorization", "Bearer not-a-token")
	suite.Equal(http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateJWT("procurement-ui", "UI", "api", time.Hour)
	suite.Require().NoError(err)

	w, _ = suite.do(http.MethodGet, "/api/rfps", nil, "Authorization", "Bearer "+token)
	suite.Equal(http.StatusOK, w.Code)

	w, _ = suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, w.Code)
}

func rawReply(from, subject, messageID, body string) string {
	return "From: " + from + "\r\n" +
		"To: procurement@buyer.example\r\n" +
		"Subject: " + subject + "\r\n" +
		"Message-ID: " + messageID + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n"
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

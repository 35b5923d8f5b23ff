// internal/services/email_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/rfp-backend/internal/mail"
	"github.com/javajoker/rfp-backend/internal/models"
	"github.com/javajoker/rfp-backend/internal/utils"
)

type EmailService struct {
	db            *gorm.DB
	mailer        mail.Mailer
	rfpService    *RFPService
	vendorService *VendorService
	fromEmail     string
	now           func() time.Time
}

type SendResult struct {
	VendorID  uint   `json:"vendor_id"`
	Vendor    string `json:"vendor"`
	MessageID string `json:"messageId"`
}

type SendFailure struct {
	VendorID uint   `json:"vendor_id"`
	Vendor   string `json:"vendor"`
	Error    string `json:"error"`
}

type SendResults struct {
	Success []SendResult  `json:"success"`
	Failed  []SendFailure `json:"failed"`
}

type rfpEmailItem struct {
	Index          int
	Name           string
	Quantity       string
	Specifications string
}

type rfpEmailData struct {
	RFP         *models.RFP
	VendorName  string
	CompanyName string
	Items       []rfpEmailItem
	Budget      string
	Deadline    string
	Reference   string
}

var rfpEmailTemplate = template.Must(template.New("rfp_email").Parse(rfpEmailHTML))

func NewEmailService(db *gorm.DB, mailer mail.Mailer, rfpService *RFPService, vendorService *VendorService, fromEmail string) *EmailService {
	return &EmailService{
		db:            db,
		mailer:        mailer,
		rfpService:    rfpService,
		vendorService: vendorService,
		fromEmail:     fromEmail,
		now:           time.Now,
	}
}

// RFPEmailSubject is the subject of the invitation sent to each vendor.
func RFPEmailSubject(rfp *models.RFP) string {
	return fmt.Sprintf("Request for Proposal: %s (%s)", rfp.Title, rfp.Reference())
}

// RenderRFPEmail renders the invitation body for one vendor.
func RenderRFPEmail(rfp *models.RFP, vendor *models.Vendor) (string, error) {
	items := make([]rfpEmailItem, 0, len(rfp.Items))
	for i, item := range rfp.Items {
		specs := item.Specifications
		if specs == "" {
			specs = utils.Placeholder
		}
		items = append(items, rfpEmailItem{
			Index:          i + 1,
			Name:           item.Name,
			Quantity:       strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			Specifications: specs,
		})
	}

	budget := "Open to proposals"
	if rfp.Budget != nil && *rfp.Budget != 0 {
		budget = utils.FormatAmount(*rfp.Budget, rfp.Currency)
	}

	deadline := "To be discussed"
	if rfp.DeliveryDeadline != nil && !rfp.DeliveryDeadline.IsZero() {
		deadline = utils.FormatLongDate(&rfp.DeliveryDeadline.Time)
	}

	companyName := vendor.CompanyName
	if companyName == "" {
		companyName = "your company"
	}

	data := rfpEmailData{
		RFP:         rfp,
		VendorName:  vendor.Name,
		CompanyName: companyName,
		Items:       items,
		Budget:      budget,
		Deadline:    deadline,
		Reference:   rfp.Reference(),
	}

	var buf bytes.Buffer
	if err := rfpEmailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

// SendRFPEmail sends the RFP to one vendor and records the attempt.
func (s *EmailService) SendRFPEmail(ctx context.Context, rfp *models.RFP, vendor *models.Vendor) (*SendResult, error) {
	html, err := RenderRFPEmail(rfp, vendor)
	if err != nil {
		return nil, err
	}

	subject := RFPEmailSubject(rfp)
	msg := &mail.OutgoingMessage{
		To:        vendor.Email,
		ToName:    vendor.Name,
		Subject:   subject,
		HTML:      html,
		Text:      mail.HTMLToText(html),
		MessageID: mail.NewMessageID(rfp.ID, vendor.ID, mail.DomainOf(s.fromEmail)),
		Headers: map[string]string{
			"X-RFP-ID":    strconv.FormatUint(uint64(rfp.ID), 10),
			"X-Vendor-ID": strconv.FormatUint(uint64(vendor.ID), 10),
		},
	}

	vendorID := vendor.ID
	entry := &models.EmailLog{
		RFPID:     rfp.ID,
		VendorID:  &vendorID,
		Direction: models.EmailDirectionOutgoing,
		Subject:   subject,
		Body:      html,
	}

	messageID, err := s.mailer.Send(ctx, msg)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"rfp_id":    rfp.ID,
			"vendor_id": vendor.ID,
			"email":     vendor.Email,
		}).Error("Failed to send RFP email")

		entry.Status = models.EmailStatusFailed
		entry.ErrorMessage = err.Error()
		recordEmailLog(ctx, s.db, entry)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"rfp_id":     rfp.ID,
		"vendor_id":  vendor.ID,
		"email":      vendor.Email,
		"message_id": messageID,
	}).Info("RFP email sent")

	entry.Status = models.EmailStatusSent
	entry.MessageID = messageID
	recordEmailLog(ctx, s.db, entry)

	return &SendResult{
		VendorID:  vendor.ID,
		Vendor:    vendor.Email,
		MessageID: messageID,
	}, nil
}

// SendRFPToVendors assigns the vendors to the RFP and emails each of them in
// turn. A failed send does not stop the others. The RFP moves to sent once
// at least one email went out.
func (s *EmailService) SendRFPToVendors(ctx context.Context, rfpID uint, vendorIDs []uint) (*SendResults, error) {
	rfp, err := s.rfpService.GetRFP(ctx, rfpID)
	if err != nil {
		return nil, err
	}

	if err := s.vendorService.AssignVendorsToRFP(ctx, rfpID, vendorIDs); err != nil {
		return nil, err
	}

	vendors, err := s.vendorService.GetVendorsByIDs(ctx, vendorIDs)
	if err != nil {
		return nil, err
	}

	results := &SendResults{
		Success: []SendResult{},
		Failed:  []SendFailure{},
	}

	for i := range vendors {
		vendor := &vendors[i]

		result, err := s.SendRFPEmail(ctx, rfp, vendor)
		if err != nil {
			results.Failed = append(results.Failed, SendFailure{
				VendorID: vendor.ID,
				Vendor:   vendor.Email,
				Error:    err.Error(),
			})
			continue
		}
		results.Success = append(results.Success, *result)

		sentAt := s.now()
		err = s.vendorService.UpdateAssociationStatus(ctx, rfp.ID, vendor.ID, AssociationUpdate{
			Status:         models.AssociationStatusSent,
			SentAt:         &sentAt,
			EmailMessageID: result.MessageID,
		})
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"rfp_id":    rfp.ID,
				"vendor_id": vendor.ID,
			}).Error("Failed to mark vendor assignment as sent")
		}
	}

	if len(results.Success) > 0 {
		if _, err := s.rfpService.MarkSentIfDraft(ctx, rfp.ID); err != nil {
			return results, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"rfp_id":  rfp.ID,
		"success": len(results.Success),
		"failed":  len(results.Failed),
	}).Info("RFP send completed")

	return results, nil
}

// recordEmailLog appends to the email audit trail. Failures are logged and
// never returned.
func recordEmailLog(ctx context.Context, db *gorm.DB, entry *models.EmailLog) {
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"rfp_id":    entry.RFPID,
			"direction": entry.Direction,
			"status":    entry.Status,
		}).Error("Failed to write email log")
	}
}

const rfpEmailHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Request for Proposal - {{.RFP.Title}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px;">
	<div style="background: #1976d2; color: white; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="margin: 0;">Request for Proposal</h1>
		<p style="margin: 10px 0 0 0;">RFP ID: {{.RFP.ID}}</p>
	</div>

	<div style="background: #f9f9f9; padding: 30px; border: 1px solid #ddd; border-top: none;">
		<p>Dear {{.VendorName}},</p>
		<p>We are pleased to invite {{.CompanyName}} to submit a proposal for the following procurement request:</p>

		<h2 style="color: #1976d2; border-bottom: 2px solid #1976d2; padding-bottom: 10px;">{{.RFP.Title}}</h2>

		<h3>Description</h3>
		<p>{{.RFP.Description}}</p>

		<h3>Items Required</h3>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #1976d2; color: white;">
					<th style="padding: 10px; text-align: left;">#</th>
					<th style="padding: 10px; text-align: left;">Item</th>
					<th style="padding: 10px; text-align: left;">Quantity</th>
					<th style="padding: 10px; text-align: left;">Specifications</th>
				</tr>
			</thead>
			<tbody>
				{{- range .Items}}
				<tr>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Index}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Name}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Quantity}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Specifications}}</td>
				</tr>
				{{- end}}
			</tbody>
		</table>

		<div style="background: white; padding: 20px; border-radius: 8px; margin: 20px 0;">
			<h3 style="margin-top: 0;">Key Details</h3>
			<table style="width: 100%;">
				<tr>
					<td style="padding: 8px 0;"><strong>Budget:</strong></td>
					<td style="padding: 8px 0;">{{.Budget}}</td>
				</tr>
				<tr>
					<td style="padding: 8px 0;"><strong>Delivery Deadline:</strong></td>
					<td style="padding: 8px 0;">{{.Deadline}}</td>
				</tr>
				{{- if .RFP.PaymentTerms}}
				<tr>
					<td style="padding: 8px 0;"><strong>Payment Terms:</strong></td>
					<td style="padding: 8px 0;">{{.RFP.PaymentTerms}}</td>
				</tr>
				{{- end}}
				{{- if .RFP.WarrantyRequirements}}
				<tr>
					<td style="padding: 8px 0;"><strong>Warranty Requirements:</strong></td>
					<td style="padding: 8px 0;">{{.RFP.WarrantyRequirements}}</td>
				</tr>
				{{- end}}
			</table>
		</div>
		{{- if .RFP.AdditionalRequirements}}

		<h3>Additional Requirements</h3>
		<p>{{.RFP.AdditionalRequirements}}</p>
		{{- end}}

		<div style="background: #e3f2fd; padding: 20px; border-radius: 8px; margin: 20px 0;">
			<h3 style="margin-top: 0; color: #1976d2;">How to Respond</h3>
			<p>Please reply to this email with your proposal including:</p>
			<ul>
				<li>Unit prices for each item</li>
				<li>Total cost</li>
				<li>Delivery timeline</li>
				<li>Payment terms you can offer</li>
				<li>Warranty terms</li>
				<li>Any terms and conditions</li>
			</ul>
			<p>Please keep the reference {{.Reference}} in the subject line.</p>
		</div>

		<p>We look forward to receiving your proposal.</p>

		<p style="margin-top: 30px;">Best regards,<br><strong>Procurement Team</strong></p>
	</div>

	<div style="background: #333; color: #999; padding: 20px; text-align: center; border-radius: 0 0 10px 10px; font-size: 12px;">
		<p style="margin: 0;">This is an automated message from the RFP Management System</p>
		<p style="margin: 5px 0 0 0;">Reference: {{.Reference}}</p>
	</div>
</body>
</html>
`

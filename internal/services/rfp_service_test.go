// internal/services/rfp_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/rfp-backend/internal/models"
	"github.com/javajoker/rfp-backend/internal/utils"
)

func TestCreateRFP(t *testing.T) {
	env := newTestEnv(t)
	deadline, err := models.ParseDate("2026-11-15")
	require.NoError(t, err)

	rfp, err := env.rfps.CreateRFP(context.Background(), &CreateRFPRequest{
		Title:            "  Laptops ",
		Description:      "20 laptops",
		Currency:         "eur",
		DeliveryDeadline: &deadline,
		Items:            []models.RFPItem{{Name: "Laptop", Quantity: 20}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Laptops", rfp.Title)
	assert.Equal(t, "EUR", rfp.Currency)
	assert.Equal(t, models.RFPStatusDraft, rfp.Status)

	loaded, err := env.rfps.GetRFP(context.Background(), rfp.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.DeliveryDeadline)
	assert.Equal(t, "2026-11-15", loaded.DeliveryDeadline.String())
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Laptop", loaded.Items[0].Name)
	assert.Equal(t, fmt.Sprintf("RFP-%d", rfp.ID), loaded.Reference())
}

func TestCreateRFPRequiresItems(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rfps.CreateRFP(context.Background(), &CreateRFPRequest{
		Title:       "Laptops",
		Description: "20 laptops",
	})
	require.Error(t, err)
	assert.NotEmpty(t, utils.GetValidationErrors(err))
}

func TestGetRFPNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.rfps.GetRFP(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRFPNotFound)
}

func TestMarkSentIfDraftNeverMovesBackward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rfp := env.createRFP(t, "Laptops")

	changed, err := env.rfps.MarkSentIfDraft(ctx, rfp.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.rfps.MarkSentIfDraft(ctx, rfp.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	closed := models.RFPStatusClosed
	_, err = env.rfps.UpdateRFP(ctx, rfp.ID, &UpdateRFPRequest{Status: &closed})
	require.NoError(t, err)

	changed, err = env.rfps.MarkSentIfDraft(ctx, rfp.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	loaded, err := env.rfps.GetRFP(ctx, rfp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RFPStatusClosed, loaded.Status)
}

func TestUpdateRFPRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	rfp := env.createRFP(t, "Laptops")

	bogus := models.RFPStatus("archived")
	_, err := env.rfps.UpdateRFP(context.Background(), rfp.ID, &UpdateRFPRequest{Status: &bogus})
	require.Error(t, err)
	assert.NotEmpty(t, utils.GetValidationErrors(err))
}

func TestUpdateRFPPartial(t *testing.T) {
	env := newTestEnv(t)
	rfp := env.createRFP(t, "Laptops")

	title := "Laptops and Docks"
	updated, err := env.rfps.UpdateRFP(context.Background(), rfp.ID, &UpdateRFPRequest{
		Title: &title,
		Items: []models.RFPItem{{Name: "Laptop", Quantity: 20}, {Name: "Dock", Quantity: 20}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Laptops and Docks", updated.Title)
	assert.Equal(t, rfp.Description, updated.Description)
	assert.Len(t, updated.Items, 2)
}

func TestUpdateRFPNormalizesCurrency(t *testing.T) {
	env := newTestEnv(t)
	rfp := env.createRFP(t, "Laptops")

	currency := " gbp "
	updated, err := env.rfps.UpdateRFP(context.Background(), rfp.ID, &UpdateRFPRequest{Currency: &currency})
	require.NoError(t, err)
	assert.Equal(t, "GBP", updated.Currency)

	bogus := "pounds"
	_, err = env.rfps.UpdateRFP(context.Background(), rfp.ID, &UpdateRFPRequest{Currency: &bogus})
	require.Error(t, err)
	assert.NotEmpty(t, utils.GetValidationErrors(err))
}

func TestListRFPsFiltersAndSearches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	laptops := env.createRFP(t, "Laptops")
	env.createRFP(t, "Office Chairs")

	_, err := env.rfps.MarkSentIfDraft(ctx, laptops.ID)
	require.NoError(t, err)

	params := utils.PaginationParams{Page: 1, Limit: 50, Sort: "created_at", Order: "desc"}
	rfps, total, err := env.rfps.ListRFPs(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Office Chairs", rfps[0].Title)

	params.Status = "sent"
	rfps, total, err = env.rfps.ListRFPs(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, laptops.ID, rfps[0].ID)

	params.Status = ""
	params.Search = "CHAIR"
	rfps, total, err = env.rfps.ListRFPs(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Office Chairs", rfps[0].Title)

	params.Search = ""
	params.Status = "bogus"
	_, _, err = env.rfps.ListRFPs(ctx, params)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDeleteRFPCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rfp := env.createRFP(t, "Laptops")
	other := env.createRFP(t, "Chairs")
	vendor := env.createVendor(t, "Acme", "sales@acme.example")

	_, err := env.emails.SendRFPToVendors(ctx, rfp.ID, []uint{vendor.ID})
	require.NoError(t, err)
	_, err = env.emails.SendRFPToVendors(ctx, other.ID, []uint{vendor.ID})
	require.NoError(t, err)
	require.NoError(t, env.proposals.CreateProposal(ctx, &models.Proposal{RFPID: rfp.ID, VendorID: vendor.ID}))

	require.NoError(t, env.rfps.DeleteRFP(ctx, rfp.ID))

	_, err = env.rfps.GetRFP(ctx, rfp.ID)
	assert.ErrorIs(t, err, ErrRFPNotFound)

	var associations, proposals, logs int64
	env.db.Model(&models.RFPVendor{}).Where("rfp_id = ?", rfp.ID).Count(&associations)
	env.db.Model(&models.Proposal{}).Where("rfp_id = ?", rfp.ID).Count(&proposals)
	env.db.Model(&models.EmailLog{}).Where("rfp_id = ?", rfp.ID).Count(&logs)
	assert.Zero(t, associations)
	assert.Zero(t, proposals)
	assert.Zero(t, logs)

	remaining, err := env.rfps.GetEmailLogs(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	assert.ErrorIs(t, env.rfps.DeleteRFP(ctx, rfp.ID), ErrRFPNotFound)
}

func TestGetRFPVendorsOnlyAssigned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rfp := env.createRFP(t, "Laptops")
	a := env.createVendor(t, "Acme", "sales@acme.example")
	env.createVendor(t, "Globex", "bids@globex.example")

	_, err := env.emails.SendRFPToVendors(ctx, rfp.ID, []uint{a.ID})
	require.NoError(t, err)

	result, err := env.rfps.GetRFPVendors(ctx, rfp.ID)
	require.NoError(t, err)
	assert.Equal(t, rfp.ID, result.ID)
	require.Len(t, result.Vendors, 1)
	assert.Equal(t, a.ID, result.Vendors[0].ID)
	require.NotNil(t, result.Vendors[0].RFPStatus)
	assert.Equal(t, models.AssociationStatusSent, *result.Vendors[0].RFPStatus)
	assert.NotNil(t, result.Vendors[0].SentAt)
}

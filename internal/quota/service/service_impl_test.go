package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jadiazinf/condominio-core/internal/clock"
	condominiumdomain "github.com/jadiazinf/condominio-core/internal/condominium/domain"
	condominiumrepo "github.com/jadiazinf/condominio-core/internal/condominium/repository"
	"github.com/jadiazinf/condominio-core/internal/events"
	"github.com/jadiazinf/condominio-core/internal/quota/domain"
	"github.com/jadiazinf/condominio-core/internal/quota/repository"
	unitdomain "github.com/jadiazinf/condominio-core/internal/unit/domain"
	unitrepo "github.com/jadiazinf/condominio-core/internal/unit/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testActor   = snowflake.ID(9001)
	testCondoID = snowflake.ID(100)
	testUnitID  = snowflake.ID(500)
)

func setupQuotaTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&condominiumdomain.Condominium{},
		&condominiumdomain.Building{},
		&unitdomain.Unit{},
		&domain.Quota{},
		&domain.QuotaAdjustment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS billing_events (
			id INTEGER PRIMARY KEY,
			condominium_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at DATETIME NOT NULL,
			UNIQUE (condominium_id, dedupe_key)
		)`,
	).Error; err != nil {
		t.Fatalf("create billing_events: %v", err)
	}

	mustExec(t, db, `INSERT INTO condominiums (id, company_id, name) VALUES (?, 1, ?)`, testCondoID, "Torre Central")
	mustExec(t, db, `INSERT INTO buildings (id, condominium_id, name) VALUES (?, ?, ?)`, 200, testCondoID, "Torre A")
	mustExec(t, db, `INSERT INTO units (id, building_id, unit_number) VALUES (?, ?, ?)`, testUnitID, 200, "A-101")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, sql string, args ...any) {
	t.Helper()
	if err := db.Exec(sql, args...).Error; err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func newQuotaService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:              db,
		log:             zap.NewNop(),
		genID:           node,
		clock:           clock.SystemClock{},
		repo:            repository.Provide(),
		adjustmentRepo:  repository.ProvideAdjustments(),
		unitRepo:        unitrepo.Provide(),
		condominiumRepo: condominiumrepo.Provide(),
		outbox:          events.NewOutbox(db, node),
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type quotaSeed struct {
	base     string
	interest string
	paid     string
	status   string
}

func seedQuota(t *testing.T, db *gorm.DB, id snowflake.ID, seed quotaSeed) {
	t.Helper()
	base := dec(seed.base)
	interest := dec(seed.interest)
	paid := dec(seed.paid)
	balance := base.Add(interest).Sub(paid)
	q := &domain.Quota{
		ID:                id,
		UnitID:            testUnitID,
		PaymentConceptID:  300,
		PeriodYear:        2026,
		PeriodMonth:       1,
		PeriodDescription: "January 2026",
		BaseAmount:        base,
		CurrencyID:        1,
		InterestAmount:    interest,
		IssueDate:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:           time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Status:            seed.status,
		PaidAmount:        paid,
		Balance:           balance,
		CreatedBy:         testActor,
	}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("seed quota: %v", err)
	}
}

func adjustReq(quotaID snowflake.ID, amount string, kind domain.AdjustmentType) domain.AdjustRequest {
	return domain.AdjustRequest{
		QuotaID:        quotaID.String(),
		NewAmount:      amount,
		AdjustmentType: kind,
		Reason:         "agreed with the unit owner",
	}
}

func TestAdjustDiscount(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	seedQuota(t, db, 1001, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusPending})

	result, err := svc.Adjust(context.Background(), adjustReq(1001, "40.00", domain.AdjustmentDiscount), testActor)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}

	if !result.Adjustment.PreviousAmount.Equal(dec("50.00")) {
		t.Fatalf("previous = %s, want 50.00", result.Adjustment.PreviousAmount)
	}
	if !result.Adjustment.NewAmount.Equal(dec("40.00")) {
		t.Fatalf("new = %s, want 40.00", result.Adjustment.NewAmount)
	}
	if result.Adjustment.CreatedBy != testActor {
		t.Fatalf("created_by = %v, want %v", result.Adjustment.CreatedBy, testActor)
	}
	if !result.Quota.BaseAmount.Equal(dec("40.00")) || !result.Quota.Balance.Equal(dec("40.00")) {
		t.Fatalf("quota base=%s balance=%s, want 40.00/40.00", result.Quota.BaseAmount, result.Quota.Balance)
	}
	if result.Quota.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", result.Quota.Status)
	}
	if !strings.Contains(result.Message, "50.00 to 40.00") || !strings.Contains(result.Message, "-10.00") {
		t.Fatalf("message = %q", result.Message)
	}

	// Persisted state matches the returned state.
	stored, err := svc.GetByID(context.Background(), "1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.Balance.Equal(dec("40.00")) {
		t.Fatalf("stored balance = %s, want 40.00", stored.Balance)
	}
}

func TestAdjustIncrease(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	seedQuota(t, db, 1001, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusPending})

	result, err := svc.Adjust(context.Background(), adjustReq(1001, "60.00", domain.AdjustmentIncrease), testActor)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !result.Quota.Balance.Equal(dec("60.00")) {
		t.Fatalf("balance = %s, want 60.00", result.Quota.Balance)
	}
	if !strings.Contains(result.Message, "+10.00") {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestAdjustWaiverCancelsQuota(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	seedQuota(t, db, 1001, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusPending})

	result, err := svc.Adjust(context.Background(), adjustReq(1001, "0", domain.AdjustmentWaiver), testActor)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !result.Quota.BaseAmount.IsZero() {
		t.Fatalf("base = %s, want 0", result.Quota.BaseAmount)
	}
	if result.Quota.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", result.Quota.Status)
	}
}

func TestAdjustMarksPaidWhenBalanceNonPositive(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	// 30 already paid; dropping the base to 25 leaves balance -5.
	seedQuota(t, db, 1002, quotaSeed{base: "50.00", interest: "0", paid: "30.00", status: domain.StatusPending})

	result, err := svc.Adjust(context.Background(), adjustReq(1002, "25.00", domain.AdjustmentDiscount), testActor)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if result.Quota.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want paid", result.Quota.Status)
	}
	if !result.Quota.Balance.Equal(dec("-5.00")) {
		t.Fatalf("balance = %s, want -5.00", result.Quota.Balance)
	}
}

func TestAdjustKeepsInterestInBalance(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	seedQuota(t, db, 1004, quotaSeed{base: "50.00", interest: "5.00", paid: "0", status: domain.StatusOverdue})

	result, err := svc.Adjust(context.Background(), adjustReq(1004, "45.00", domain.AdjustmentDiscount), testActor)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	// 45 base + 5 interest - 0 paid.
	if !result.Quota.Balance.Equal(dec("50.00")) {
		t.Fatalf("balance = %s, want 50.00", result.Quota.Balance)
	}
	if result.Quota.Status != domain.StatusOverdue {
		t.Fatalf("status = %s, want overdue untouched", result.Quota.Status)
	}
}

func TestAdjustValidationErrors(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	seedQuota(t, db, 1001, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusPending})
	seedQuota(t, db, 1003, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusCancelled})
	ctx := context.Background()

	cases := []struct {
		name    string
		req     domain.AdjustRequest
		wantErr error
	}{
		{
			name:    "quota missing",
			req:     adjustReq(999999, "40.00", domain.AdjustmentDiscount),
			wantErr: domain.ErrQuotaNotFound,
		},
		{
			name:    "cancelled quota",
			req:     adjustReq(1003, "40.00", domain.AdjustmentDiscount),
			wantErr: domain.ErrQuotaCancelled,
		},
		{
			name:    "amount unchanged",
			req:     adjustReq(1001, "50.00", domain.AdjustmentCorrection),
			wantErr: domain.ErrAmountUnchanged,
		},
		{
			name:    "negative non-waiver",
			req:     adjustReq(1001, "-10.00", domain.AdjustmentDiscount),
			wantErr: domain.ErrAmountNegative,
		},
		{
			name:    "waiver with non-zero amount",
			req:     adjustReq(1001, "10.00", domain.AdjustmentWaiver),
			wantErr: domain.ErrWaiverNotZero,
		},
		{
			name: "reason too short",
			req: domain.AdjustRequest{
				QuotaID:        "1001",
				NewAmount:      "40.00",
				AdjustmentType: domain.AdjustmentDiscount,
				Reason:         "too short",
			},
			wantErr: domain.ErrReasonTooShort,
		},
		{
			name: "unknown type",
			req: domain.AdjustRequest{
				QuotaID:        "1001",
				NewAmount:      "40.00",
				AdjustmentType: "writeoff",
				Reason:         "agreed with the unit owner",
			},
			wantErr: domain.ErrInvalidAdjustmentType,
		},
		{
			name: "amount not a number",
			req: domain.AdjustRequest{
				QuotaID:        "1001",
				NewAmount:      "forty",
				AdjustmentType: domain.AdjustmentDiscount,
				Reason:         "agreed with the unit owner",
			},
			wantErr: domain.ErrInvalidAmount,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Adjust(ctx, tc.req, testActor)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	// Failed attempts must not leave ledger entries behind.
	entries, err := svc.ListAdjustmentsByQuota(ctx, "1001")
	if err != nil {
		t.Fatalf("list adjustments: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d entries", len(entries))
	}
}

func TestAdjustAppendOnlyLedger(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	seedQuota(t, db, 1001, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusPending})
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, adjustReq(1001, "40.00", domain.AdjustmentDiscount), testActor); err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	if _, err := svc.Adjust(ctx, adjustReq(1001, "45.00", domain.AdjustmentCorrection), testActor); err != nil {
		t.Fatalf("second adjust: %v", err)
	}

	entries, err := svc.ListAdjustmentsByQuota(ctx, "1001")
	if err != nil {
		t.Fatalf("list adjustments: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}

	// The second entry chains off the first one's result.
	var second *domain.QuotaAdjustment
	for i := range entries {
		if entries[i].AdjustmentType == domain.AdjustmentCorrection {
			second = &entries[i]
		}
	}
	if second == nil || !second.PreviousAmount.Equal(dec("40.00")) {
		t.Fatalf("correction entry should start from 40.00, got %+v", second)
	}

	var eventCount int64
	if err := db.Raw(`SELECT COUNT(*) FROM billing_events WHERE event_type = ?`, events.EventQuotaAdjusted).Scan(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 2 {
		t.Fatalf("expected 2 outbox events, got %d", eventCount)
	}
}

func TestMarkOverdue(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	seedQuota(t, db, 1001, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusPending})
	seedQuota(t, db, 1002, quotaSeed{base: "50.00", interest: "0", paid: "50.00", status: domain.StatusPaid})

	marked, err := svc.MarkOverdue(context.Background(), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked = %d, want 1", marked)
	}

	quota, err := svc.GetByID(context.Background(), "1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if quota.Status != domain.StatusOverdue {
		t.Fatalf("status = %s, want overdue", quota.Status)
	}

	// Paid quotas are untouched.
	paid, err := svc.GetByID(context.Background(), "1002")
	if err != nil {
		t.Fatalf("get paid: %v", err)
	}
	if paid.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want paid", paid.Status)
	}

	// Before the due date nothing is marked.
	db2 := setupQuotaTestDB(t)
	svc2 := newQuotaService(t, db2)
	seedQuota(t, db2, 1001, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusPending})
	marked, err = svc2.MarkOverdue(context.Background(), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if marked != 0 {
		t.Fatalf("marked = %d, want 0", marked)
	}
}

func TestListAdjustmentsByUserAndType(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := newQuotaService(t, db)
	seedQuota(t, db, 1001, quotaSeed{base: "50.00", interest: "0", paid: "0", status: domain.StatusPending})
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, adjustReq(1001, "40.00", domain.AdjustmentDiscount), testActor); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	byUser, err := svc.ListAdjustmentsByUser(ctx, testActor.String())
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 1 {
		t.Fatalf("by user = %d entries, want 1", len(byUser))
	}

	byType, err := svc.ListAdjustmentsByType(ctx, domain.AdjustmentDiscount)
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if len(byType) != 1 {
		t.Fatalf("by type = %d entries, want 1", len(byType))
	}

	none, err := svc.ListAdjustmentsByType(ctx, domain.AdjustmentWaiver)
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("waiver entries = %d, want 0", len(none))
	}
}
